package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studynote/internal/model"
	"studynote/internal/store"
)

func seedTask(due time.Time) model.Task {
	return model.Task{
		Title:    "Weekly quiz",
		DueDate:  due,
		Status:   model.StatusTodo,
		Priority: model.PriorityHigh,
		Category: model.CategoryStudy,
	}
}

func dueDates(tasks []model.Task) []time.Time {
	out := make([]time.Time, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.DueDate)
	}
	return out
}

func TestExpandWeeklyNeverReEmitsSeedDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 21)
	created, err := NewExpander(s).Expand(ctx, model.Seed{
		Task: seedTask(start),
		Rule: model.Recurrence{Frequency: model.FrequencyWeekly, Interval: 1, EndDate: &end},
	})
	require.NoError(t, err)

	require.Len(t, created, 3)
	assert.Equal(t, []time.Time{
		start.AddDate(0, 0, 7),
		start.AddDate(0, 0, 14),
		start.AddDate(0, 0, 21),
	}, dueDates(created))

	for _, task := range created {
		assert.Nil(t, task.Recurrence)
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, "Weekly quiz", task.Title)
	}
}

func TestExpandEndDateIsInclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	created, err := NewExpander(s).Expand(ctx, model.Seed{
		Task: seedTask(start),
		Rule: model.Recurrence{Frequency: model.FrequencyDaily, Interval: 2, EndDate: &end},
	})
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2026, 1, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
	}, dueDates(created))
}

func TestExpandWithoutEndDateStopsAtCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	created, err := NewExpander(s).Expand(ctx, model.Seed{
		Task: seedTask(start),
		Rule: model.Recurrence{Frequency: model.FrequencyDaily, Interval: 1},
	})
	require.NoError(t, err)
	assert.Len(t, created, 100)
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 30, 23, 0, 0, 0, time.UTC)
	created, err := NewExpander(s).Expand(ctx, model.Seed{
		Task: seedTask(start),
		Rule: model.Recurrence{Frequency: model.FrequencyMonthly, Interval: 1, EndDate: &end},
	})
	require.NoError(t, err)

	// Jan 31 clamps to Feb 28, and the series continues from the clamped day.
	assert.Equal(t, []time.Time{
		time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 28, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 28, 10, 0, 0, 0, time.UTC),
	}, dueDates(created))
}

func TestExpandRejectsNonPositiveInterval(t *testing.T) {
	s := newTestStore(t)

	_, err := NewExpander(s).Expand(context.Background(), model.Seed{
		Task: seedTask(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)),
		Rule: model.Recurrence{Frequency: model.FrequencyDaily, Interval: 0},
	})

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestExpandStampsRuleOnStoredSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	stored, err := s.Create(ctx, seedTask(start))
	require.NoError(t, err)

	end := start.AddDate(0, 0, 7)
	_, err = NewExpander(s).Expand(ctx, model.Seed{
		Task: stored,
		Rule: model.Recurrence{Frequency: model.FrequencyWeekly, Interval: 1, EndDate: &end},
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Recurrence)
	assert.Equal(t, model.FrequencyWeekly, got.Recurrence.Frequency)
}

func TestExpandForDaysRejectsUnknownFrequency(t *testing.T) {
	s := newTestStore(t)

	_, err := NewExpander(s).ExpandForDays(context.Background(),
		[]time.Time{time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		model.Recurrence{Frequency: "yearly", Interval: 1})

	var uerr *model.UnsupportedRecurrenceError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, model.Frequency("yearly"), uerr.Frequency)
}

func TestExpandForDaysSkipsExistingSeeds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := day.AddDate(0, 0, 14).Add(12 * time.Hour)
	rule := model.Recurrence{Frequency: model.FrequencyWeekly, Interval: 1, EndDate: &end}

	plain := seedTask(day.Add(9 * time.Hour))
	_, err := s.Create(ctx, plain)
	require.NoError(t, err)

	already := seedTask(day.Add(14 * time.Hour))
	already.Title = "Already repeating"
	already.Recurrence = &rule
	_, err = s.Create(ctx, already)
	require.NoError(t, err)

	created, err := NewExpander(s).ExpandForDays(ctx, []time.Time{day}, rule)
	require.NoError(t, err)

	// Only the plain task expands, two occurrences inside the window.
	require.Len(t, created, 2)
	for _, task := range created {
		assert.Equal(t, "Weekly quiz", task.Title)
	}
}

func TestExpandForDaysExpandsEachSelectedDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day1 := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	first := seedTask(day1.Add(9 * time.Hour))
	first.Title = "Morning drill"
	_, err := s.Create(ctx, first)
	require.NoError(t, err)

	second := seedTask(day2.Add(15 * time.Hour))
	second.Title = "Afternoon drill"
	_, err = s.Create(ctx, second)
	require.NoError(t, err)

	end := day2.AddDate(0, 0, 7).Add(20 * time.Hour)
	created, err := NewExpander(s).ExpandForDays(ctx, []time.Time{day1, day2},
		model.Recurrence{Frequency: model.FrequencyWeekly, Interval: 1, EndDate: &end})
	require.NoError(t, err)

	require.Len(t, created, 2)
	assert.Equal(t, "Morning drill", created[0].Title)
	assert.Equal(t, day1.Add(9*time.Hour).AddDate(0, 0, 7), created[0].DueDate)
	assert.Equal(t, "Afternoon drill", created[1].Title)
	assert.Equal(t, day2.Add(15*time.Hour).AddDate(0, 0, 7), created[1].DueDate)
}

// flakyStore fails creates for one title, modelling a write error that
// hits a single series mid-batch.
type flakyStore struct {
	*store.TaskStore
	failTitle string
}

func (f *flakyStore) Create(ctx context.Context, task model.Task) (model.Task, error) {
	if task.Title == f.failTitle {
		return model.Task{}, fmt.Errorf("disk full")
	}
	return f.TaskStore.Create(ctx, task)
}

func TestExpandForDaysFailedPairLeavesOthersIntact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	broken := seedTask(day.Add(9 * time.Hour))
	broken.Title = "Broken drill"
	_, err := s.Create(ctx, broken)
	require.NoError(t, err)

	working := seedTask(day.Add(15 * time.Hour))
	working.Title = "Working drill"
	_, err = s.Create(ctx, working)
	require.NoError(t, err)

	end := day.AddDate(0, 0, 7).Add(20 * time.Hour)
	expander := NewExpander(&flakyStore{TaskStore: s, failTitle: "Broken drill"})
	created, err := expander.ExpandForDays(ctx, []time.Time{day},
		model.Recurrence{Frequency: model.FrequencyWeekly, Interval: 1, EndDate: &end})

	// The broken pair reports its error, the other pair still expands.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.Len(t, created, 1)
	assert.Equal(t, "Working drill", created[0].Title)
}
