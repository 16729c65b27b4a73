package service

import (
	"sort"
	"strings"
	"time"

	"studynote/internal/model"
)

// ListPageSize is the fixed page size of the task-list view.
const ListPageSize = 6

// Filter narrows a task list. Zero fields match everything.
type Filter struct {
	Text     string
	Status   model.Status
	Category model.Category
	From     *time.Time
	To       *time.Time
}

// ApplyFilter returns the tasks matching every set criterion: free text is
// a case-insensitive substring match on title and description, status and
// category match exactly, and the due-date range is inclusive on both ends.
func ApplyFilter(tasks []model.Task, f Filter) []model.Task {
	text := strings.ToLower(strings.TrimSpace(f.Text))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if text != "" &&
			!strings.Contains(strings.ToLower(t.Title), text) &&
			!strings.Contains(strings.ToLower(t.Description), text) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.From != nil && t.DueDate.Before(*f.From) {
			continue
		}
		if f.To != nil && t.DueDate.After(*f.To) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortForList orders tasks for the task-list view: active tasks first,
// then done, then overdue; within a rank by due date, priority ordinal and
// title. The sort is stable, so equal entries keep their input order.
func SortForList(tasks []model.Task) []model.Task {
	return sortByRank(tasks, listRank)
}

// SortForCalendar uses the calendar view's two-bucket rank: finished and
// overdue tasks sink below active ones, with the same tie-breaks.
func SortForCalendar(tasks []model.Task) []model.Task {
	return sortByRank(tasks, calendarRank)
}

func sortByRank(tasks []model.Task, rank func(model.Task) int) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if pa, pb := a.Priority.Ordinal(), b.Priority.Ordinal(); pa != pb {
			return pa < pb
		}
		return a.Title < b.Title
	})
	return out
}

func listRank(t model.Task) int {
	switch t.Status {
	case model.StatusDone:
		return 1
	case model.StatusOverdue:
		return 2
	default:
		return 0
	}
}

func calendarRank(t model.Task) int {
	if t.Status.Terminal() {
		return 1
	}
	return 0
}

// Paginate returns the 1-based page of the given size. Pages past the end
// come back empty; clamping is the caller's job.
func Paginate(tasks []model.Task, page, size int) []model.Task {
	if page < 1 || size < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(tasks) {
		return nil
	}
	end := start + size
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[start:end]
}

// TotalPages reports how many pages of the given size the list fills.
func TotalPages(total, size int) int {
	if total <= 0 || size < 1 {
		return 0
	}
	return (total + size - 1) / size
}
