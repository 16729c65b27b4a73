package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"studynote/internal/model"
	"studynote/internal/store"
)

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Notifier is a fire-and-forget notification sink. Delivery is not
// required for correctness.
type Notifier interface {
	Notify(ctx context.Context, message string, severity Severity)
}

// ConfirmationPrompt asks the user whether an imminent task is already
// finished. The sweep never blocks on the answer; Resolve applies it when
// it arrives.
type ConfirmationPrompt struct {
	TaskID  string
	Title   string
	Message string
}

// ConfirmationPrompter surfaces a pending prompt to the user.
type ConfirmationPrompter interface {
	RequestConfirmation(ctx context.Context, prompt ConfirmationPrompt)
}

// reminderThresholds are the whole-day marks that trigger an upcoming
// reminder for todo tasks.
var reminderThresholds = []int{7, 5, 3}

// Reconciler periodically scans all tasks and applies time-based status
// transitions, writing back only the tasks that changed.
type Reconciler struct {
	store    *store.TaskStore
	notifier Notifier
	prompter ConfirmationPrompter
	now      func() time.Time

	mu       sync.Mutex
	reminded map[string]int      // task id -> last day threshold notified
	pending  map[string]struct{} // task ids with an unanswered prompt
}

func NewReconciler(s *store.TaskStore, notifier Notifier, prompter ConfirmationPrompter) *Reconciler {
	return &Reconciler{
		store:    s,
		notifier: notifier,
		prompter: prompter,
		now:      time.Now,
		reminded: make(map[string]int),
		pending:  make(map[string]struct{}),
	}
}

// WithClock overrides the time source, used by tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Sweep runs one reconciliation pass. Rules in precedence order:
// overdue promotion, upcoming reminders at 7/5/3 whole days, and the
// imminent-completion prompt at 1 hour remaining. Only changed tasks are
// persisted, one update each.
func (r *Reconciler) Sweep(ctx context.Context) error {
	tasks, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("sweep: list tasks: %w", err)
	}

	now := r.now()
	seen := make(map[string]struct{}, len(tasks))

	for _, task := range tasks {
		seen[task.ID] = struct{}{}
		original := task.Status

		remaining := task.DueDate.Sub(now)
		daysLeft := int(math.Ceil(remaining.Hours() / 24))
		hoursLeft := int(math.Ceil(remaining.Hours()))

		// Rule 1: overdue promotion, terminal for the sweep.
		if !task.Status.Terminal() && remaining < 0 {
			task.Status = model.StatusOverdue
			r.notifier.Notify(ctx, fmt.Sprintf("Task %q is overdue and was not completed.", task.Title), SeverityError)
			r.forget(task.ID)
		}

		// Rule 2: upcoming reminders, non-mutating.
		if task.Status == model.StatusTodo {
			for _, threshold := range reminderThresholds {
				if daysLeft == threshold && r.markReminded(task.ID, threshold) {
					r.notifier.Notify(ctx, fmt.Sprintf("Task %q is due in %d days.", task.Title, threshold), SeverityWarning)
					break
				}
			}
		}

		// Rule 3: imminent-completion prompt, answered asynchronously.
		if !task.Status.Terminal() && hoursLeft == 1 && r.markPending(task.ID) {
			r.prompter.RequestConfirmation(ctx, ConfirmationPrompt{
				TaskID:  task.ID,
				Title:   task.Title,
				Message: fmt.Sprintf("Task %q is due in 1 hour. Is it finished?", task.Title),
			})
		}

		if task.Status != original {
			if _, err := r.store.Update(ctx, task); err != nil {
				return fmt.Errorf("sweep: update task %s: %w", task.ID, err)
			}
		}
	}

	r.prune(seen)
	return nil
}

// Resolve applies the user's answer to an imminent-completion prompt.
// Confirmed tasks become done; a declined todo advances to in-progress,
// a declined in-progress is left unchanged.
func (r *Reconciler) Resolve(ctx context.Context, taskID string, confirmed bool) (*model.Task, error) {
	r.mu.Lock()
	delete(r.pending, taskID)
	r.mu.Unlock()

	task, err := r.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	switch {
	case confirmed:
		if task.Status == model.StatusDone {
			return &task, nil
		}
		task.Status = model.StatusDone
	case task.Status == model.StatusTodo:
		task.Status = model.StatusInProgress
	default:
		return &task, nil
	}

	updated, err := r.store.Update(ctx, task)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// markReminded records a reminder emission, returning false when the
// threshold was already notified for this task.
func (r *Reconciler) markReminded(taskID string, threshold int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reminded[taskID] == threshold {
		return false
	}
	r.reminded[taskID] = threshold
	return true
}

// markPending records an outstanding prompt, returning false when one is
// already waiting for this task.
func (r *Reconciler) markPending(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[taskID]; ok {
		return false
	}
	r.pending[taskID] = struct{}{}
	return true
}

// forget drops sweep bookkeeping for a task that left the active states.
func (r *Reconciler) forget(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reminded, taskID)
	delete(r.pending, taskID)
}

// prune drops bookkeeping for tasks that no longer exist.
func (r *Reconciler) prune(seen map[string]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.reminded {
		if _, ok := seen[id]; !ok {
			delete(r.reminded, id)
		}
	}
	for id := range r.pending {
		if _, ok := seen[id]; !ok {
			delete(r.pending, id)
		}
	}
}
