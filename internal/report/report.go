// Package report provides weekly report, product group and mentor comment
// operations, and the stores the progress aggregator reads from.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/mentortrack/internal/account"
	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/progress"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a report or product group does not exist.
	ErrNotFound = errors.New("report: not found")
	// ErrInvalidInput is returned when submitted fields fail validation.
	ErrInvalidInput = errors.New("report: invalid input")
	// ErrForbidden is returned when a user may not perform an action.
	ErrForbidden = errors.New("report: forbidden")
)

// Reflections holds answers to the optional weekly prompts.
type Reflections struct {
	TimeConsumingTask string `json:"time_consuming_task,omitempty"`
	DifficultDecision string `json:"difficult_decision,omitempty"`
	LearnedFromSenior string `json:"learned_from_senior,omitempty"`
	OwnDecision       string `json:"own_decision,omitempty"`
	RedidTask         string `json:"redid_task,omitempty"`
}

// SubmitOpts holds parameters for filing a weekly report.
type SubmitOpts struct {
	MenteeID         uint
	ProductGroupID   uint
	Stage            string
	ProgressItems    string
	ActionsTaken     string
	InsightsConcerns string
	SelfEvaluation   int // 1 = stalled, 2 = some progress, 3 = on track
	Reflections      Reflections
	ReportDate       time.Time // zero means now
}

// ListFilters holds optional filters for listing reports.
type ListFilters struct {
	MenteeID       uint
	ProductGroupID uint
	Limit          int
}

// Submit validates and stores a weekly report. The product group's current
// name is cached on the report for display. Report dates are stored in UTC
// and may not lie in the future.
func Submit(db *gorm.DB, opts SubmitOpts) (*models.WeeklyReport, error) {
	stage, err := progress.ParseStage(opts.Stage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if opts.SelfEvaluation < 1 || opts.SelfEvaluation > 3 {
		return nil, fmt.Errorf("%w: self evaluation %d must be 1, 2 or 3", ErrInvalidInput, opts.SelfEvaluation)
	}

	if _, err := account.RequireRole(db, opts.MenteeID, models.RoleMentee); err != nil {
		return nil, translateAccountErr(err)
	}

	group, err := GetGroup(db, opts.ProductGroupID)
	if err != nil {
		return nil, err
	}
	if group.MenteeID != opts.MenteeID {
		return nil, fmt.Errorf("%w: product group %d belongs to another mentee", ErrForbidden, group.ID)
	}

	reflections, err := json.Marshal(opts.Reflections)
	if err != nil {
		return nil, fmt.Errorf("report: encode reflections: %w", err)
	}

	now := time.Now()
	reportDate := opts.ReportDate
	if reportDate.IsZero() {
		reportDate = now
	}
	if reportDate.After(now) {
		return nil, fmt.Errorf("%w: report date %s is in the future", ErrInvalidInput, reportDate.Format(time.RFC3339))
	}
	// Stored dates are compared as text on SQLite, so every row uses one zone.
	reportDate = reportDate.UTC()

	r := models.WeeklyReport{
		MenteeID:            opts.MenteeID,
		ProductGroupID:      &group.ID,
		ProductGroupName:    group.Name,
		PlanningStage:       string(stage),
		ProgressItems:       strings.TrimSpace(opts.ProgressItems),
		ActionsTaken:        strings.TrimSpace(opts.ActionsTaken),
		InsightsConcerns:    strings.TrimSpace(opts.InsightsConcerns),
		SelfEvaluation:      opts.SelfEvaluation,
		AdditionalResponses: string(reflections),
		WeekStart:           progress.WeekStart(reportDate),
		ReportDate:          reportDate,
	}
	if err := db.Create(&r).Error; err != nil {
		return nil, fmt.Errorf("report: create: %w", err)
	}
	return &r, nil
}

// Get retrieves a report by ID with its comments, oldest first.
func Get(db *gorm.DB, id uint) (*models.WeeklyReport, error) {
	var r models.WeeklyReport
	err := db.Preload("Comments", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC, id ASC")
	}).Where("id = ?", id).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: report %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("report: get %d: %w", id, err)
	}
	return &r, nil
}

// List returns reports matching filters, newest first.
func List(db *gorm.DB, filters ListFilters) ([]models.WeeklyReport, error) {
	q := db.Model(&models.WeeklyReport{})
	if filters.MenteeID != 0 {
		q = q.Where("mentee_id = ?", filters.MenteeID)
	}
	if filters.ProductGroupID != 0 {
		q = q.Where("product_group_id = ?", filters.ProductGroupID)
	}
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}

	var reports []models.WeeklyReport
	if err := q.Order("report_date DESC, id DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("report: list: %w", err)
	}
	return reports, nil
}

// Previous returns the same mentee's most recent report from the week before
// r, or nil if there is none.
func Previous(db *gorm.DB, r *models.WeeklyReport) (*models.WeeklyReport, error) {
	weekStart := progress.WeekStart(r.WeekStart.UTC())
	prevWeek := weekStart.AddDate(0, 0, -7)
	var prev models.WeeklyReport
	err := db.Where("mentee_id = ? AND week_start >= ? AND week_start < ?", r.MenteeID, prevWeek, weekStart).
		Order("report_date DESC, id DESC").
		First(&prev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("report: previous week of %d: %w", r.ID, err)
	}
	return &prev, nil
}

// DecodeReflections parses the stored prompt answers of a report.
func DecodeReflections(r *models.WeeklyReport) (Reflections, error) {
	var out Reflections
	if r.AdditionalResponses == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(r.AdditionalResponses), &out); err != nil {
		return out, fmt.Errorf("report: decode reflections of %d: %w", r.ID, err)
	}
	return out, nil
}

// AddComment attaches mentor feedback to a report. Only mentors and admins
// may comment.
func AddComment(db *gorm.DB, reportID, mentorID uint, body string) (*models.MentorComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}

	if _, err := account.RequireRole(db, mentorID, models.RoleMentor, models.RoleAdmin); err != nil {
		if errors.Is(err, account.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: user %d may not comment", ErrForbidden, mentorID)
		}
		return nil, translateAccountErr(err)
	}

	var count int64
	if err := db.Model(&models.WeeklyReport{}).Where("id = ?", reportID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("report: check report %d: %w", reportID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: report %d", ErrNotFound, reportID)
	}

	c := models.MentorComment{ReportID: reportID, MentorID: mentorID, Body: body}
	if err := db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("report: add comment: %w", err)
	}
	return &c, nil
}

// SubmittedSince returns reports created after the given ID, oldest first.
func SubmittedSince(db *gorm.DB, afterID uint, limit int) ([]models.WeeklyReport, error) {
	var reports []models.WeeklyReport
	if err := db.Where("id > ?", afterID).Order("id ASC").Limit(limit).Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("report: submitted since %d: %w", afterID, err)
	}
	return reports, nil
}

// translateAccountErr maps account errors onto this package's sentinels.
func translateAccountErr(err error) error {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, account.ErrInvalidInput):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}
