package notify

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/zulandar/mentortrack/internal/account"
	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/progress"
	"gorm.io/gorm"
)

// Status colors used in chat attachments.
const (
	colorDanger  = "#d9534f"
	colorWarning = "#f0ad4e"
)

// Mentee identifies a mentee whose progress is included in a digest.
type Mentee struct {
	ID   uint
	Name string
}

// MenteeSource lists the mentees a digest covers.
type MenteeSource func(ctx context.Context) ([]Mentee, error)

// MenteesFromDB returns a MenteeSource listing every mentee in db.
func MenteesFromDB(db *gorm.DB) MenteeSource {
	return func(ctx context.Context) ([]Mentee, error) {
		users, err := account.List(db.WithContext(ctx), models.RoleMentee)
		if err != nil {
			return nil, err
		}
		out := make([]Mentee, len(users))
		for i, u := range users {
			out[i] = Mentee{ID: u.ID, Name: u.Name}
		}
		return out, nil
	}
}

// Computer computes per-group progress for a mentee. *progress.Aggregator
// satisfies it.
type Computer interface {
	Compute(ctx context.Context, menteeID uint, windowWeeks int) ([]progress.Summary, error)
}

// Entry is one product group that needs attention.
type Entry struct {
	MenteeID        uint
	MenteeName      string
	GroupID         uint
	GroupName       string
	Stage           progress.Stage
	Status          progress.Status
	Level           int
	WeeksSinceStart int
	StageDuration   int
}

// Key identifies the entry for duplicate suppression.
func (e Entry) Key() string {
	return fmt.Sprintf("%d:%d:%d", e.MenteeID, e.GroupID, e.Level)
}

// Digest lists product groups whose status warrants a mentor's attention.
type Digest struct {
	GeneratedAt time.Time
	Entries     []Entry
}

// BuildDigest computes progress for every mentee and collects groups at
// danger level, plus warning level when includeWarning is set. Entries are
// ordered by level, highest first, then by mentee and group name.
func BuildDigest(ctx context.Context, agg Computer, mentees []Mentee, weeks int, includeWarning bool) (*Digest, error) {
	d := &Digest{GeneratedAt: time.Now()}
	for _, m := range mentees {
		summaries, err := agg.Compute(ctx, m.ID, weeks)
		if err != nil {
			return nil, fmt.Errorf("notify: compute progress for %s: %w", m.Name, err)
		}
		for _, s := range summaries {
			if s.Status != progress.StatusDanger && !(includeWarning && s.Status == progress.StatusWarning) {
				continue
			}
			d.Entries = append(d.Entries, Entry{
				MenteeID:        m.ID,
				MenteeName:      m.Name,
				GroupID:         s.ID,
				GroupName:       s.Name,
				Stage:           s.CurrentStage,
				Status:          s.Status,
				Level:           s.TimeWarningLevel,
				WeeksSinceStart: s.WeeksSinceStart,
				StageDuration:   s.StageDuration,
			})
		}
	}

	sort.SliceStable(d.Entries, func(i, j int) bool {
		a, b := d.Entries[i], d.Entries[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.MenteeName != b.MenteeName {
			return a.MenteeName < b.MenteeName
		}
		return a.GroupName < b.GroupName
	})
	return d, nil
}

// Message renders entries as a chat message.
func (d *Digest) Message(entries []Entry) Message {
	msg := Message{
		Text: fmt.Sprintf("MentorTrack progress digest %s: %d product group(s) need attention",
			d.GeneratedAt.Format("2006-01-02"), len(entries)),
	}
	for _, e := range entries {
		color := colorWarning
		if e.Status == progress.StatusDanger {
			color = colorDanger
		}
		msg.Items = append(msg.Items, Item{
			Title: fmt.Sprintf("%s / %s", e.MenteeName, e.GroupName),
			Body:  fmt.Sprintf("%s for %d days", e.Stage.Label(), e.StageDuration),
			Color: color,
			Fields: []Field{
				{Name: "Status", Value: string(e.Status), Short: true},
				{Name: "Weeks since start", Value: strconv.Itoa(e.WeeksSinceStart), Short: true},
			},
		})
	}
	return msg
}
