package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/mentortrack/internal/progress"
)

type fakeComputer struct {
	byMentee map[uint][]progress.Summary
	err      error
}

func (f *fakeComputer) Compute(_ context.Context, menteeID uint, _ int) ([]progress.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byMentee[menteeID], nil
}

type recordingNotifier struct {
	name string
	err  error

	mu   sync.Mutex
	msgs []Message
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func staticMentees(ms ...Mentee) MenteeSource {
	return func(context.Context) ([]Mentee, error) { return ms, nil }
}

func testComputer() *fakeComputer {
	return &fakeComputer{byMentee: map[uint][]progress.Summary{
		1: {
			{ID: 10, Name: "Backpacks", CurrentStage: progress.StageSampleApproved, Status: progress.StatusWarning, TimeWarningLevel: 2, WeeksSinceStart: 9},
			{ID: 11, Name: "Monitors", CurrentStage: progress.StageListingLive, Status: progress.StatusCompleted},
			{ID: 12, Name: "Chairs", CurrentStage: progress.StagePreProposal, Status: progress.StatusDanger, TimeWarningLevel: 4, WeeksSinceStart: 20, StageDuration: 140},
		},
		2: {
			{ID: 20, Name: "Lamps", CurrentStage: progress.StageFirstOrder, Status: progress.StatusDanger, TimeWarningLevel: 3, WeeksSinceStart: 13},
			{ID: 21, Name: "Mugs", CurrentStage: progress.StagePreProposal, Status: progress.StatusGood},
		},
	}}
}

func TestBuildDigest_DangerOnly(t *testing.T) {
	d, err := BuildDigest(context.Background(), testComputer(),
		[]Mentee{{ID: 1, Name: "Taro"}, {ID: 2, Name: "Hanako"}}, 16, false)
	require.NoError(t, err)

	require.Len(t, d.Entries, 2)
	assert.Equal(t, "Chairs", d.Entries[0].GroupName)
	assert.Equal(t, 4, d.Entries[0].Level)
	assert.Equal(t, "Lamps", d.Entries[1].GroupName)
	assert.Equal(t, "Hanako", d.Entries[1].MenteeName)
}

func TestBuildDigest_IncludeWarning(t *testing.T) {
	d, err := BuildDigest(context.Background(), testComputer(),
		[]Mentee{{ID: 1, Name: "Taro"}, {ID: 2, Name: "Hanako"}}, 16, true)
	require.NoError(t, err)

	require.Len(t, d.Entries, 3)
	assert.Equal(t, "Backpacks", d.Entries[2].GroupName)
	assert.Equal(t, progress.StatusWarning, d.Entries[2].Status)
}

func TestBuildDigest_ComputeError(t *testing.T) {
	_, err := BuildDigest(context.Background(), &fakeComputer{err: errors.New("db down")},
		[]Mentee{{ID: 1, Name: "Taro"}}, 16, false)
	assert.ErrorContains(t, err, "db down")
	assert.ErrorContains(t, err, "Taro")
}

func TestDigest_Message(t *testing.T) {
	d := &Digest{GeneratedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	msg := d.Message([]Entry{
		{MenteeName: "Taro", GroupName: "Chairs", Stage: progress.StagePreProposal, Status: progress.StatusDanger, Level: 4, WeeksSinceStart: 20, StageDuration: 140},
		{MenteeName: "Taro", GroupName: "Backpacks", Stage: progress.StageSampleApproved, Status: progress.StatusWarning, Level: 2, WeeksSinceStart: 9},
	})

	assert.Contains(t, msg.Text, "2026-10-19")
	assert.Contains(t, msg.Text, "2 product group(s)")
	require.Len(t, msg.Items, 2)
	assert.Equal(t, "Taro / Chairs", msg.Items[0].Title)
	assert.Equal(t, colorDanger, msg.Items[0].Color)
	assert.Equal(t, colorWarning, msg.Items[1].Color)
	assert.Contains(t, msg.Items[0].Body, "140 days")
	assert.Equal(t, "20", msg.Items[0].Fields[1].Value)
}

func TestNewScheduler_Validation(t *testing.T) {
	_, err := NewScheduler(SchedulerOpts{Schedule: "0 9 * * 1", Mentees: staticMentees()})
	assert.ErrorContains(t, err, "aggregator is required")

	_, err = NewScheduler(SchedulerOpts{Schedule: "0 9 * * 1", Aggregator: testComputer()})
	assert.ErrorContains(t, err, "mentee source is required")

	_, err = NewScheduler(SchedulerOpts{Schedule: "every monday", Aggregator: testComputer(), Mentees: staticMentees()})
	assert.ErrorContains(t, err, "parse schedule")
}

func TestScheduler_Next(t *testing.T) {
	s, err := NewScheduler(SchedulerOpts{Schedule: "0 9 * * 1", Aggregator: testComputer(), Mentees: staticMentees()})
	require.NoError(t, err)

	next := s.Next(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), next)
}

func TestRunOnce_Dedupe(t *testing.T) {
	slack := &recordingNotifier{name: "slack"}
	s, err := NewScheduler(SchedulerOpts{
		Schedule:    "0 9 * * 1",
		Aggregator:  testComputer(),
		Mentees:     staticMentees(Mentee{ID: 1, Name: "Taro"}, Mentee{ID: 2, Name: "Hanako"}),
		Notifiers:   []Notifier{slack},
		WindowWeeks: 16,
		DedupeTTL:   time.Hour,
	})
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, slack.count())

	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "same entries within the TTL are suppressed")
	assert.Equal(t, 1, slack.count())
}

func TestRunOnce_LevelChangeResends(t *testing.T) {
	comp := testComputer()
	slack := &recordingNotifier{name: "slack"}
	s, err := NewScheduler(SchedulerOpts{
		Schedule:   "0 9 * * 1",
		Aggregator: comp,
		Mentees:    staticMentees(Mentee{ID: 2, Name: "Hanako"}),
		Notifiers:  []Notifier{slack},
		DedupeTTL:  time.Hour,
	})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)

	comp.byMentee[2][0].TimeWarningLevel = 4
	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, slack.count())
}

func TestRunOnce_NoDedupe(t *testing.T) {
	slack := &recordingNotifier{name: "slack"}
	s, err := NewScheduler(SchedulerOpts{
		Schedule:   "0 9 * * 1",
		Aggregator: testComputer(),
		Mentees:    staticMentees(Mentee{ID: 2, Name: "Hanako"}),
		Notifiers:  []Notifier{slack},
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := s.RunOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, slack.count())
}

func TestRunOnce_PartialFailure(t *testing.T) {
	slack := &recordingNotifier{name: "slack"}
	discord := &recordingNotifier{name: "discord", err: errors.New("missing access")}
	s, err := NewScheduler(SchedulerOpts{
		Schedule:   "0 9 * * 1",
		Aggregator: testComputer(),
		Mentees:    staticMentees(Mentee{ID: 2, Name: "Hanako"}),
		Notifiers:  []Notifier{slack, discord},
		DedupeTTL:  time.Hour,
	})
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	assert.Equal(t, 1, n)
	assert.ErrorContains(t, err, "discord: missing access")
	assert.Equal(t, 1, slack.count())
}

func TestRunOnce_AllFail(t *testing.T) {
	discord := &recordingNotifier{name: "discord", err: errors.New("missing access")}
	s, err := NewScheduler(SchedulerOpts{
		Schedule:   "0 9 * * 1",
		Aggregator: testComputer(),
		Mentees:    staticMentees(Mentee{ID: 2, Name: "Hanako"}),
		Notifiers:  []Notifier{discord},
		DedupeTTL:  time.Hour,
	})
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	assert.Zero(t, n)
	require.Error(t, err)

	// Nothing was delivered, so the next run tries again.
	discord.err = nil
	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunOnce_NoNotifiers(t *testing.T) {
	s, err := NewScheduler(SchedulerOpts{Schedule: "0 9 * * 1", Aggregator: testComputer(), Mentees: staticMentees(Mentee{ID: 2})})
	require.NoError(t, err)
	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStart_StopsOnCancel(t *testing.T) {
	s, err := NewScheduler(SchedulerOpts{Schedule: "0 9 * * 1", Aggregator: testComputer(), Mentees: staticMentees()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
