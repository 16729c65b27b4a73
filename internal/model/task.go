package model

import "time"

// Task represents a single item in the planner.
type Task struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	DueDate     time.Time   `json:"dueDate"`
	Status      Status      `json:"status"`
	Priority    Priority    `json:"priority"`
	Category    Category    `json:"category"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
}

// Recurrence describes how a seed task repeats.
type Recurrence struct {
	Frequency Frequency  `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Seed pairs a task with the rule it repeats by. Only a Seed can be
// expanded; generated instances never carry a rule.
type Seed struct {
	Task Task
	Rule Recurrence
}

// Clone returns a deep copy so callers cannot mutate store-internal state.
func (t Task) Clone() Task {
	out := t
	if t.Recurrence != nil {
		rule := *t.Recurrence
		if t.Recurrence.EndDate != nil {
			end := *t.Recurrence.EndDate
			rule.EndDate = &end
		}
		out.Recurrence = &rule
	}
	return out
}

// IsSeed reports whether the task carries a recurrence rule.
func (t Task) IsSeed() bool {
	return t.Recurrence != nil
}

// SameDay reports whether both times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
