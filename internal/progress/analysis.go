package progress

import (
	"context"
	"fmt"
	"math"
	"time"
)

// WeekBucket aggregates the reports filed in one Monday-start week.
type WeekBucket struct {
	WeekStart             time.Time     `json:"week_start"`
	Reports               int           `json:"reports"`
	AverageSelfEvaluation float64       `json:"average_self_evaluation"`
	Stages                map[Stage]int `json:"stages"`
}

// Analysis is the week-by-week view of a mentee's reporting.
type Analysis struct {
	MenteeID              uint         `json:"mentee_id"`
	Weeks                 []WeekBucket `json:"weeks"`
	TotalReports          int          `json:"total_reports"`
	AverageSelfEvaluation float64      `json:"average_self_evaluation"`
}

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// Analyze buckets the last weeks weeks of reports (including the current one)
// into weekly totals, oldest week first. Weeks without reports are included.
// Only reports belonging to a registered product group are counted.
func (a *Aggregator) Analyze(ctx context.Context, menteeID uint, weeks int) (*Analysis, error) {
	weeks = ClampWeeks(weeks, DefaultAnalysisWeeks)
	now := a.now()
	first := WeekStart(now).AddDate(0, 0, -7*(weeks-1))

	out := &Analysis{
		MenteeID: menteeID,
		Weeks:    make([]WeekBucket, weeks),
	}
	for i := range out.Weeks {
		out.Weeks[i] = WeekBucket{
			WeekStart: first.AddDate(0, 0, 7*i),
			Stages:    map[Stage]int{},
		}
	}

	reg, err := a.loadRegistry(ctx, menteeID)
	if err != nil {
		return nil, err
	}
	if reg.empty() {
		return out, nil
	}

	reports, err := a.reports.ListSince(ctx, menteeID, first)
	if err != nil {
		return nil, fmt.Errorf("progress: list reports for mentee %d: %w", menteeID, err)
	}

	sums := make([]int, weeks)
	total := 0
	for _, r := range reports {
		if r.Date.Before(first) || r.Date.After(now) {
			continue
		}
		if _, ok := reg.resolve(r); !ok {
			continue
		}
		idx := weekIndex(first, r.Date)
		if idx < 0 || idx >= weeks {
			continue
		}
		b := &out.Weeks[idx]
		b.Reports++
		b.Stages[r.Stage]++
		sums[idx] += r.SelfEvaluation
		total += r.SelfEvaluation
		out.TotalReports++
	}

	for i := range out.Weeks {
		if n := out.Weeks[i].Reports; n > 0 {
			out.Weeks[i].AverageSelfEvaluation = float64(sums[i]) / float64(n)
		}
	}
	if out.TotalReports > 0 {
		out.AverageSelfEvaluation = float64(total) / float64(out.TotalReports)
	}
	return out, nil
}

// weekIndex returns how many whole calendar weeks t lies after first, or -1
// if t is before first. Days are rounded so a DST shift of an hour either way
// does not move a report into the neighbouring week.
func weekIndex(first, t time.Time) int {
	ws := WeekStart(t.In(first.Location()))
	days := int(math.Floor(ws.Sub(first).Hours()/24 + 0.5))
	if days < 0 {
		return -1
	}
	return days / 7
}
