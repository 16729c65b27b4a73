package service

import (
	"time"

	"studynote/internal/model"
)

// calendarDayLimit is how many tasks a calendar day shows before the
// "+N more" remainder indicator.
const calendarDayLimit = 2

// DaySummary is one calendar cell: the visible tasks for the day plus the
// count of hidden ones.
type DaySummary struct {
	Day     time.Time
	Visible []model.Task
	More    int
}

// DayKey names a calendar day for grouping. time.Time values make poor map
// keys here because equality compares the location pointer, and tasks
// reloaded from the persisted blob carry a different location than a
// freshly built day.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// GroupByDay buckets tasks by the calendar day of their due date.
func GroupByDay(tasks []model.Task) map[string][]model.Task {
	grouped := make(map[string][]model.Task)
	for _, t := range tasks {
		key := DayKey(t.DueDate)
		grouped[key] = append(grouped[key], t)
	}
	return grouped
}

// SummarizeDay sorts a day's tasks with the calendar rank and truncates to
// the visible limit.
func SummarizeDay(day time.Time, tasks []model.Task) DaySummary {
	sorted := SortForCalendar(tasks)
	summary := DaySummary{Day: day, Visible: sorted}
	if len(sorted) > calendarDayLimit {
		summary.Visible = sorted[:calendarDayLimit]
		summary.More = len(sorted) - calendarDayLimit
	}
	return summary
}

// MonthDays lists every day of the month containing ref, in order.
func MonthDays(ref time.Time) []time.Time {
	year, month, _ := ref.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
	days := make([]time.Time, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
