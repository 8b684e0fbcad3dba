// Package progress aggregates a mentee's weekly reports into per-product-group
// status summaries.
package progress

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Window defaults and limits, in weeks.
const (
	DefaultWindowWeeks   = 16
	DefaultAnalysisWeeks = 12
	MinWeeks             = 1
	MaxWeeks             = 52
)

const week = 7 * 24 * time.Hour

// Status is the derived health label of a product group.
type Status string

const (
	StatusGood      Status = "good"
	StatusWarning   Status = "warning"
	StatusDanger    Status = "danger"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

// Report is a single weekly report as seen by the aggregator.
type Report struct {
	ID               uint
	MenteeID         uint
	ProductGroupID   uint // 0 for rows that predate the id join key
	ProductGroupName string
	Stage            Stage
	SelfEvaluation   int
	Date             time.Time
}

// ProductGroupRef is a registry entry for a mentee's product group.
type ProductGroupRef struct {
	ID        uint
	Name      string
	Images    []string
	CreatedAt time.Time
}

// ReportEntry is one report inside a Summary.
type ReportEntry struct {
	ID             uint      `json:"id"`
	Date           time.Time `json:"date"`
	Stage          Stage     `json:"stage"`
	SelfEvaluation int       `json:"self_evaluation"`
}

// Summary is the computed progress of one product group.
type Summary struct {
	ID               uint          `json:"id"`
	Name             string        `json:"name"`
	Images           []string      `json:"images"`
	CreatedAt        time.Time     `json:"created_at"`
	Reports          []ReportEntry `json:"reports"`
	CurrentStage     Stage         `json:"current_stage"`
	StageDuration    int           `json:"stage_duration"`
	WeeksSinceStart  int           `json:"weeks_since_start"`
	Status           Status        `json:"progress_status"`
	TimeWarningLevel int           `json:"time_warning_level"`
	IsCompleted      bool          `json:"is_completed"`
	IsCancelled      bool          `json:"is_cancelled"`
}

// ReportRepository lists a mentee's reports filed on or after since,
// newest first.
type ReportRepository interface {
	ListSince(ctx context.Context, menteeID uint, since time.Time) ([]Report, error)
}

// ProductGroupRepository lists the product groups currently registered to a mentee.
type ProductGroupRepository interface {
	ListActive(ctx context.Context, menteeID uint) ([]ProductGroupRef, error)
}

// Aggregator computes progress summaries from the report and product-group stores.
// It holds no per-call state and is safe for concurrent use.
type Aggregator struct {
	reports ReportRepository
	groups  ProductGroupRepository
	now     func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator over the given repositories.
func NewAggregator(reports ReportRepository, groups ProductGroupRepository, opts ...Option) *Aggregator {
	a := &Aggregator{
		reports: reports,
		groups:  groups,
		now:     time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ClampWeeks bounds a window to [MinWeeks, MaxWeeks], substituting def for
// non-positive values.
func ClampWeeks(weeks, def int) int {
	if weeks <= 0 {
		weeks = def
	}
	if weeks < MinWeeks {
		return MinWeeks
	}
	if weeks > MaxWeeks {
		return MaxWeeks
	}
	return weeks
}

// Compute returns one Summary per registered product group that has at least
// one report in the last windowWeeks weeks. Reports dated after now are ignored. Summaries appear in the order their
// most recent report was filed.
func (a *Aggregator) Compute(ctx context.Context, menteeID uint, windowWeeks int) ([]Summary, error) {
	now := a.now()
	since := now.Add(-time.Duration(windowWeeks) * week)

	reg, err := a.loadRegistry(ctx, menteeID)
	if err != nil {
		return nil, err
	}
	if reg.empty() {
		return []Summary{}, nil
	}

	reports, err := a.reports.ListSince(ctx, menteeID, since)
	if err != nil {
		return nil, fmt.Errorf("progress: list reports for mentee %d: %w", menteeID, err)
	}
	sortNewestFirst(reports)

	var order []uint
	grouped := make(map[uint][]Report)
	for _, r := range reports {
		if r.Date.Before(since) || r.Date.After(now) {
			continue
		}
		ref, ok := reg.resolve(r)
		if !ok {
			continue
		}
		if _, seen := grouped[ref.ID]; !seen {
			order = append(order, ref.ID)
		}
		grouped[ref.ID] = append(grouped[ref.ID], r)
	}

	result := make([]Summary, 0, len(order))
	for _, id := range order {
		result = append(result, Summarize(reg.byID[id], grouped[id], now))
	}
	return result, nil
}

// Summarize builds the Summary for one product group from its reports,
// which must be ordered newest first.
func Summarize(ref ProductGroupRef, reports []Report, now time.Time) Summary {
	s := Summary{
		ID:        ref.ID,
		Name:      ref.Name,
		Images:    ref.Images,
		CreatedAt: ref.CreatedAt,
		Reports:   make([]ReportEntry, len(reports)),
		Status:    StatusUnknown,
	}
	if s.Images == nil {
		s.Images = []string{}
	}
	if len(reports) == 0 {
		return s
	}

	for i, r := range reports {
		s.Reports[i] = ReportEntry{
			ID:             r.ID,
			Date:           r.Date,
			Stage:          r.Stage,
			SelfEvaluation: r.SelfEvaluation,
		}
	}

	s.CurrentStage = reports[0].Stage
	s.IsCompleted = s.CurrentStage.IsCompleted()
	s.IsCancelled = s.CurrentStage.IsCancelled()

	// Walk back to the start of the most recent unbroken run of the current stage.
	runStart := reports[0].Date
	for _, r := range reports[1:] {
		if r.Stage != s.CurrentStage {
			break
		}
		runStart = r.Date
	}
	s.StageDuration = int(now.Sub(runStart) / (24 * time.Hour))

	oldest := reports[len(reports)-1].Date
	s.WeeksSinceStart = int(now.Sub(oldest) / week)

	s.Status, s.TimeWarningLevel = Classify(s.CurrentStage, s.WeeksSinceStart)
	return s
}

// Classify maps a current stage and elapsed weeks to a status and a 0-4
// warning level. Completed and cancelled groups always have level 0.
func Classify(stage Stage, weeksSinceStart int) (Status, int) {
	switch {
	case stage.IsCompleted():
		return StatusCompleted, 0
	case stage.IsCancelled():
		return StatusCancelled, 0
	case weeksSinceStart < 4:
		return StatusGood, 0
	case weeksSinceStart < 8:
		return StatusWarning, 1
	case weeksSinceStart < 12:
		return StatusWarning, 2
	case weeksSinceStart < 16:
		return StatusDanger, 3
	default:
		return StatusDanger, 4
	}
}

// registry indexes a mentee's active product groups for report matching.
type registry struct {
	byID   map[uint]ProductGroupRef
	byName map[string]ProductGroupRef
}

func (a *Aggregator) loadRegistry(ctx context.Context, menteeID uint) (*registry, error) {
	groups, err := a.groups.ListActive(ctx, menteeID)
	if err != nil {
		return nil, fmt.Errorf("progress: list product groups for mentee %d: %w", menteeID, err)
	}
	reg := &registry{
		byID:   make(map[uint]ProductGroupRef, len(groups)),
		byName: make(map[string]ProductGroupRef, len(groups)),
	}
	for _, g := range groups {
		reg.byID[g.ID] = g
		if _, dup := reg.byName[g.Name]; !dup {
			reg.byName[g.Name] = g
		}
	}
	return reg, nil
}

func (r *registry) empty() bool { return len(r.byID) == 0 }

// resolve finds the registry entry a report belongs to. Reports carrying a
// product group id join on it; older rows fall back to exact name equality.
func (r *registry) resolve(rep Report) (ProductGroupRef, bool) {
	if rep.ProductGroupID != 0 {
		ref, ok := r.byID[rep.ProductGroupID]
		return ref, ok
	}
	ref, ok := r.byName[rep.ProductGroupName]
	return ref, ok
}

func sortNewestFirst(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Date.After(reports[j].Date)
	})
}
