package report

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/progress"
	"gorm.io/gorm"
)

// ReportStore reads weekly reports for the progress aggregator.
type ReportStore struct {
	DB *gorm.DB
}

// ListSince implements progress.ReportRepository.
func (s ReportStore) ListSince(ctx context.Context, menteeID uint, since time.Time) ([]progress.Report, error) {
	var rows []models.WeeklyReport
	err := s.DB.WithContext(ctx).
		Where("mentee_id = ? AND report_date >= ?", menteeID, since.UTC()).
		Order("report_date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("report: list since %s: %w", since.Format(time.RFC3339), err)
	}

	out := make([]progress.Report, 0, len(rows))
	for _, r := range rows {
		var groupID uint
		if r.ProductGroupID != nil {
			groupID = *r.ProductGroupID
		}
		out = append(out, progress.Report{
			ID:               r.ID,
			MenteeID:         r.MenteeID,
			ProductGroupID:   groupID,
			ProductGroupName: r.ProductGroupName,
			Stage:            progress.Stage(r.PlanningStage),
			SelfEvaluation:   r.SelfEvaluation,
			Date:             r.ReportDate,
		})
	}
	return out, nil
}

// GroupStore reads the product group registry for the progress aggregator.
type GroupStore struct {
	DB *gorm.DB
}

// ListActive implements progress.ProductGroupRepository.
func (s GroupStore) ListActive(ctx context.Context, menteeID uint) ([]progress.ProductGroupRef, error) {
	groups, err := ListGroups(s.DB.WithContext(ctx), menteeID)
	if err != nil {
		return nil, err
	}
	out := make([]progress.ProductGroupRef, 0, len(groups))
	for i := range groups {
		out = append(out, progress.ProductGroupRef{
			ID:        groups[i].ID,
			Name:      groups[i].Name,
			Images:    GroupImages(&groups[i]),
			CreatedAt: groups[i].CreatedAt,
		})
	}
	return out, nil
}

// NewAggregator wires the GORM stores into a progress aggregator.
func NewAggregator(db *gorm.DB, opts ...progress.Option) *progress.Aggregator {
	return progress.NewAggregator(ReportStore{DB: db}, GroupStore{DB: db}, opts...)
}
