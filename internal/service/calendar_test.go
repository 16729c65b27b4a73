package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studynote/internal/model"
)

func TestGroupByDayBucketsByCalendarDay(t *testing.T) {
	day1 := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)

	tasks := []model.Task{
		queryTask("morning", day1.Add(9*time.Hour), model.StatusTodo, model.PriorityMedium),
		queryTask("evening", day1.Add(19*time.Hour), model.StatusTodo, model.PriorityMedium),
		queryTask("next day", day2.Add(9*time.Hour), model.StatusTodo, model.PriorityMedium),
	}

	grouped := GroupByDay(tasks)
	require.Len(t, grouped, 2)
	assert.Len(t, grouped[DayKey(day1)], 2)
	assert.Len(t, grouped[DayKey(day2)], 1)
}

func TestGroupByDaySurvivesPersistenceRoundTrip(t *testing.T) {
	task := queryTask("persisted", time.Date(2026, 9, 3, 9, 0, 0, 0, time.Local), model.StatusTodo, model.PriorityMedium)

	// Reloading the blob yields tasks whose times carry a different
	// location value than freshly built days.
	raw, err := json.Marshal([]model.Task{task})
	require.NoError(t, err)
	var reloaded []model.Task
	require.NoError(t, json.Unmarshal(raw, &reloaded))

	grouped := GroupByDay(reloaded)
	found := 0
	for _, day := range MonthDays(time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)) {
		found += len(grouped[DayKey(day)])
	}
	assert.Equal(t, 1, found)
}

func TestSummarizeDayTruncatesToTwoTasks(t *testing.T) {
	day := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		queryTask("third", day.Add(15*time.Hour), model.StatusTodo, model.PriorityLow),
		queryTask("first", day.Add(9*time.Hour), model.StatusTodo, model.PriorityHigh),
		queryTask("second", day.Add(11*time.Hour), model.StatusTodo, model.PriorityMedium),
		queryTask("fourth", day.Add(18*time.Hour), model.StatusDone, model.PriorityHigh),
	}

	summary := SummarizeDay(day, tasks)
	assert.Equal(t, []string{"first", "second"}, titles(summary.Visible))
	assert.Equal(t, 2, summary.More)
}

func TestSummarizeDayShortListIsComplete(t *testing.T) {
	day := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		queryTask("only", day.Add(9*time.Hour), model.StatusTodo, model.PriorityMedium),
	}

	summary := SummarizeDay(day, tasks)
	assert.Len(t, summary.Visible, 1)
	assert.Zero(t, summary.More)
}

func TestMonthDays(t *testing.T) {
	days := MonthDays(time.Date(2026, 2, 15, 13, 0, 0, 0, time.UTC))
	require.Len(t, days, 28)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), days[27])
}

func TestDistributeCountsByStatusPriorityCategory(t *testing.T) {
	due := testNow.Add(time.Hour)
	tasks := []model.Task{
		{ID: "1", Title: "a", DueDate: due, Status: model.StatusTodo, Priority: model.PriorityHigh, Category: model.CategoryStudy},
		{ID: "2", Title: "b", DueDate: due, Status: model.StatusTodo, Priority: model.PriorityLow, Category: model.CategoryWork},
		{ID: "3", Title: "c", DueDate: due.AddDate(0, 0, 2), Status: model.StatusDone, Priority: model.PriorityHigh, Category: model.CategoryStudy},
	}

	dist := Distribute(tasks, nil, nil)
	assert.Equal(t, 3, dist.Total)
	assert.Equal(t, 2, dist.Status[model.StatusTodo])
	assert.Equal(t, 1, dist.Status[model.StatusDone])
	assert.Equal(t, 2, dist.Priority[model.PriorityHigh])
	assert.Equal(t, 1, dist.Priority[model.PriorityLow])
	assert.Equal(t, 2, dist.Category[model.CategoryStudy])
	assert.Equal(t, 1, dist.Category[model.CategoryWork])
}

func TestDistributeHonoursDateRange(t *testing.T) {
	tasks := []model.Task{
		queryTask("inside", testNow.AddDate(0, 0, 1), model.StatusTodo, model.PriorityMedium),
		queryTask("outside", testNow.AddDate(0, 0, 10), model.StatusTodo, model.PriorityMedium),
	}

	from := testNow
	to := testNow.AddDate(0, 0, 5)
	dist := Distribute(tasks, &from, &to)
	assert.Equal(t, 1, dist.Total)
}
