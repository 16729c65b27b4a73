package service

import (
	"context"
	"log"
	"time"

	"studynote/internal/model"
)

// maxOccurrences bounds one expansion regardless of the rule's end date.
const maxOccurrences = 100

// expanderStore is the slice of store behavior the expander needs.
type expanderStore interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, task model.Task) (model.Task, error)
	Update(ctx context.Context, task model.Task) (model.Task, error)
}

// Expander turns a seed task into a bounded series of concrete instances.
type Expander struct {
	store expanderStore
}

func NewExpander(s expanderStore) *Expander {
	return &Expander{store: s}
}

// Expand generates every occurrence after the seed's due date and commits
// each through the store in chronological order. The seed date itself is
// never re-emitted. After the series is created the rule is stamped onto
// the stored seed so it is never expanded twice.
func (e *Expander) Expand(ctx context.Context, seed model.Seed) ([]model.Task, error) {
	if seed.Rule.Interval < 1 {
		return nil, model.Validationf("recurrence interval must be positive")
	}

	var created []model.Task
	current := seed.Task.DueDate

	for i := 0; i < maxOccurrences; i++ {
		next, err := advance(current, seed.Rule)
		if err != nil {
			return created, err
		}
		if seed.Rule.EndDate != nil && next.After(*seed.Rule.EndDate) {
			break
		}

		instance := seed.Task.Clone()
		instance.ID = ""
		instance.DueDate = next
		instance.Recurrence = nil

		committed, err := e.store.Create(ctx, instance)
		if err != nil {
			return created, err
		}
		created = append(created, committed)
		current = next
	}

	if seed.Task.ID != "" {
		stamped := seed.Task.Clone()
		rule := seed.Rule
		stamped.Recurrence = &rule
		if _, err := e.store.Update(ctx, stamped); err != nil {
			return created, err
		}
	}

	return created, nil
}

// ExpandForDays runs one independent expansion per (day, task) pair over
// the tasks due on each selected day that do not already carry a rule.
// Pairs run sequentially, so commit order is deterministic. A failing pair
// is abandoned where it stopped; later pairs still run, and the first
// error is reported after the batch.
func (e *Expander) ExpandForDays(ctx context.Context, days []time.Time, rule model.Recurrence) ([]model.Task, error) {
	if !rule.Frequency.Valid() {
		return nil, &model.UnsupportedRecurrenceError{Frequency: rule.Frequency}
	}

	tasks, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var created []model.Task
	var firstErr error
	for _, day := range days {
		for _, task := range tasks {
			if task.IsSeed() || !model.SameDay(task.DueDate, day) {
				continue
			}
			seed := model.Seed{Task: task, Rule: rule}
			// The seed keeps its own time of day on the selected date.
			seed.Task.DueDate = atTimeOfDay(day, task.DueDate)
			series, err := e.Expand(ctx, seed)
			created = append(created, series...)
			if err != nil {
				log.Printf("[warn] expand %q on %s: %v", task.Title, day.Format("2006-01-02"), err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return created, firstErr
}

// advance steps one interval of the rule's frequency past t.
func advance(t time.Time, rule model.Recurrence) (time.Time, error) {
	switch rule.Frequency {
	case model.FrequencyDaily:
		return t.AddDate(0, 0, rule.Interval), nil
	case model.FrequencyWeekly:
		return t.AddDate(0, 0, 7*rule.Interval), nil
	case model.FrequencyMonthly:
		return addMonthsClamped(t, rule.Interval), nil
	default:
		return time.Time{}, &model.UnsupportedRecurrenceError{Frequency: rule.Frequency}
	}
}

// addMonthsClamped adds months keeping the day of month where valid and
// clamping to the last day otherwise, so Jan 31 + 1 month lands on the
// last day of February instead of rolling into March.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(first.Month(), first.Year()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// atTimeOfDay places src's clock time onto day's calendar date.
func atTimeOfDay(day, src time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, src.Hour(), src.Minute(), src.Second(), src.Nanosecond(), src.Location())
}
