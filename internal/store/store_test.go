package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studynote/internal/model"
	"studynote/internal/repository"
)

func newTestKV(t *testing.T) *repository.KV {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return repository.NewKV(db)
}

func newTestStore(t *testing.T) *TaskStore {
	t.Helper()
	s, err := New(context.Background(), newTestKV(t), 0)
	require.NoError(t, err)
	return s
}

func sampleTask(title string) model.Task {
	return model.Task{
		Title:    title,
		DueDate:  time.Date(2026, 9, 10, 17, 0, 0, 0, time.UTC),
		Status:   model.StatusTodo,
		Priority: model.PriorityMedium,
		Category: model.CategoryStudy,
	}
}

func TestCreateAssignsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleTask("Read chapter 4"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read chapter 4", got.Title)
}

func TestCollectionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)

	first, err := New(ctx, kv, 0)
	require.NoError(t, err)

	end := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	task := sampleTask("Weekly review")
	task.Recurrence = &model.Recurrence{Frequency: model.FrequencyWeekly, Interval: 1, EndDate: &end}
	created, err := first.Create(ctx, task)
	require.NoError(t, err)

	second, err := New(ctx, kv, 0)
	require.NoError(t, err)

	got, err := second.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekly review", got.Title)
	require.NotNil(t, got.Recurrence)
	assert.Equal(t, model.FrequencyWeekly, got.Recurrence.Frequency)
	require.NotNil(t, got.Recurrence.EndDate)
	assert.True(t, got.Recurrence.EndDate.Equal(end))
}

func TestReturnedTasksAreCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := sampleTask("Plan sprint")
	task.Recurrence = &model.Recurrence{Frequency: model.FrequencyDaily, Interval: 1}
	created, err := s.Create(ctx, task)
	require.NoError(t, err)

	// Mutating the returned value must not leak into the store.
	created.Title = "hijacked"
	created.Recurrence.Interval = 99

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan sprint", got.Title)
	assert.Equal(t, 1, got.Recurrence.Interval)

	listed, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].Title = "hijacked again"

	got, err = s.Get(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan sprint", got.Title)
}

func TestCorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)
	require.NoError(t, kv.Set(ctx, TasksKey, []byte("{definitely not json")))

	s, err := New(ctx, kv, 0)
	require.NoError(t, err)

	tasks, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUpdateReplacesTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleTask("Draft essay"))
	require.NoError(t, err)

	created.Status = model.StatusInProgress
	updated, err := s.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestDeleteRemovesTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleTask("Old task"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))

	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, s.Delete(ctx, created.ID), ErrTaskNotFound)
}

func TestUnknownIDsReturnNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = s.Update(ctx, sampleTask("nope"))
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestLatencyHonoursCancelledContext(t *testing.T) {
	kv := newTestKV(t)
	s, err := New(context.Background(), kv, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
