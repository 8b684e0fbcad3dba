package dashboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/mentortrack/internal/models"
	"gorm.io/gorm"
)

// MenteeRow holds a mentee with report activity for the overview list.
type MenteeRow struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	MentorID     *uint      `json:"mentor_id,omitempty"`
	MentorName   string     `json:"mentor_name,omitempty"`
	ReportCount  int64      `json:"report_count"`
	GroupCount   int64      `json:"group_count"`
	LastReportAt *time.Time `json:"last_report_at,omitempty"`
}

// MenteeOverview returns every mentee ordered by name, with report and
// product group counts.
func MenteeOverview(db *gorm.DB) ([]MenteeRow, error) {
	var mentees []models.User
	if err := db.Preload("Mentor").Where("role = ?", models.RoleMentee).
		Order("name ASC, id ASC").Find(&mentees).Error; err != nil {
		return nil, fmt.Errorf("dashboard: list mentees: %w", err)
	}

	reportCounts, err := countByMentee(db, &models.WeeklyReport{})
	if err != nil {
		return nil, err
	}
	groupCounts, err := countByMentee(db, &models.ProductGroup{})
	if err != nil {
		return nil, err
	}

	rows := make([]MenteeRow, len(mentees))
	for i, m := range mentees {
		rows[i] = MenteeRow{
			ID:          m.ID,
			Name:        m.Name,
			Email:       m.Email,
			MentorID:    m.MentorID,
			ReportCount: reportCounts[m.ID],
			GroupCount:  groupCounts[m.ID],
		}
		if m.Mentor != nil {
			rows[i].MentorName = m.Mentor.Name
		}
		if rows[i].ReportCount == 0 {
			continue
		}
		var latest models.WeeklyReport
		err := db.Select("id", "report_date").Where("mentee_id = ?", m.ID).
			Order("report_date DESC, id DESC").First(&latest).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("dashboard: latest report of %d: %w", m.ID, err)
		}
		if err == nil {
			at := latest.ReportDate
			rows[i].LastReportAt = &at
		}
	}
	return rows, nil
}

// countByMentee counts rows of model per mentee_id.
func countByMentee(db *gorm.DB, model any) (map[uint]int64, error) {
	type row struct {
		MenteeID uint
		Count    int64
	}
	var rows []row
	if err := db.Model(model).
		Select("mentee_id, count(*) as count").
		Group("mentee_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("dashboard: count by mentee: %w", err)
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.MenteeID] = r.Count
	}
	return out, nil
}
