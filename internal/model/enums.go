package model

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusOverdue    Status = "overdue"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusOverdue:
		return true
	}
	return false
}

// Terminal reports whether the automatic sweep leaves this status alone.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusOverdue
}

// Priority orders tasks by urgency. Ordinals sort high before low.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Ordinal returns the sort rank: high=0, medium=1, low=2.
func (p Priority) Ordinal() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Category groups tasks by area.
type Category string

const (
	CategoryStudy    Category = "study"
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryStudy, CategoryWork, CategoryPersonal:
		return true
	}
	return false
}

// Frequency is the unit a recurrence rule advances by.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}
