package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/progress"
)

func TestCreateGroup_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := CreateGroup(f.db, GroupOpts{MenteeID: f.mentee.ID, Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = CreateGroup(f.db, GroupOpts{MenteeID: f.mentee.ID, Name: "Backpacks"})
	assert.ErrorIs(t, err, ErrInvalidInput, "duplicate name for the same mentee")

	_, err = CreateGroup(f.db, GroupOpts{MenteeID: f.other.ID, Name: "Backpacks"})
	assert.NoError(t, err, "same name for a different mentee")

	_, err = CreateGroup(f.db, GroupOpts{MenteeID: f.mentor.ID, Name: "Chairs"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListGroups(t *testing.T) {
	f := newFixture(t)
	_, err := CreateGroup(f.db, GroupOpts{MenteeID: f.mentee.ID, Name: "Monitors"})
	require.NoError(t, err)

	groups, err := ListGroups(f.db, f.mentee.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Backpacks", groups[0].Name)
	assert.Equal(t, "Monitors", groups[1].Name)
	assert.Equal(t, []string{}, GroupImages(&groups[1]))
}

func TestRenameGroup_KeepsHistory(t *testing.T) {
	f := newFixture(t)
	linked := f.submit(t, "pre_proposal", 1, time.Date(2026, 10, 6, 9, 0, 0, 0, time.UTC))

	legacy := models.WeeklyReport{
		MenteeID:         f.mentee.ID,
		ProductGroupName: "Backpacks",
		PlanningStage:    "pre_proposal",
		SelfEvaluation:   1,
		WeekStart:        time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC),
		ReportDate:       time.Date(2026, 9, 29, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.db.Create(&legacy).Error)

	g, err := RenameGroup(f.db, f.group.ID, "Travel Backpacks")
	require.NoError(t, err)
	assert.Equal(t, "Travel Backpacks", g.Name)

	for _, id := range []uint{linked.ID, legacy.ID} {
		r, err := Get(f.db, id)
		require.NoError(t, err)
		assert.Equal(t, "Travel Backpacks", r.ProductGroupName)
		require.NotNil(t, r.ProductGroupID)
		assert.Equal(t, f.group.ID, *r.ProductGroupID)
	}

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(f.db, progress.WithClock(func() time.Time { return now }))
	got, err := agg.Compute(context.Background(), f.mentee.ID, 16)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Reports, 2)
}

func TestRenameGroup_Conflicts(t *testing.T) {
	f := newFixture(t)
	_, err := CreateGroup(f.db, GroupOpts{MenteeID: f.mentee.ID, Name: "Monitors"})
	require.NoError(t, err)

	_, err = RenameGroup(f.db, f.group.ID, "Monitors")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = RenameGroup(f.db, f.group.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = RenameGroup(f.db, 999, "Anything")
	assert.ErrorIs(t, err, ErrNotFound)

	g, err := RenameGroup(f.db, f.group.ID, "Backpacks")
	require.NoError(t, err)
	assert.Equal(t, "Backpacks", g.Name)
}

func TestDeleteGroup_DropsFromProgress(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, "first_order", 3, time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC))

	require.NoError(t, DeleteGroup(f.db, f.group.ID))
	assert.ErrorIs(t, DeleteGroup(f.db, f.group.ID), ErrNotFound)

	_, err := Get(f.db, r.ID)
	require.NoError(t, err, "reports survive group deletion")

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(f.db, progress.WithClock(func() time.Time { return now }))
	got, err := agg.Compute(context.Background(), f.mentee.ID, 16)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGroupImages_Malformed(t *testing.T) {
	assert.Equal(t, []string{}, GroupImages(&models.ProductGroup{Images: "not json"}))
	assert.Equal(t, []string{}, GroupImages(&models.ProductGroup{Images: "null"}))
	assert.Equal(t, []string{"a.png"}, GroupImages(&models.ProductGroup{Images: `["a.png"]`}))
}
