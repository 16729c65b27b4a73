package service

import (
	"context"
	"strings"
	"time"

	"studynote/internal/model"
	"studynote/internal/store"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    model.Priority
	Category    model.Category
}

// TaskService wraps task-related business logic around the store.
type TaskService struct {
	store *store.TaskStore
	now   func() time.Time
}

func NewTaskService(s *store.TaskStore) *TaskService {
	return &TaskService{store: s, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// Create validates the input and commits a new todo task.
func (s *TaskService) Create(ctx context.Context, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.Validationf("title must not be empty")
	}
	if input.DueDate.IsZero() {
		return nil, model.Validationf("due date must be set")
	}
	if input.DueDate.Before(s.now()) {
		return nil, model.Validationf("due date must not be in the past")
	}

	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, model.Validationf("unknown priority %q", priority)
	}
	category := input.Category
	if category == "" {
		category = model.CategoryStudy
	}
	if !category.Valid() {
		return nil, model.Validationf("unknown category %q", category)
	}

	if err := s.checkDuplicate(ctx, title, input.DueDate, ""); err != nil {
		return nil, err
	}

	task, err := s.store.Create(ctx, model.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate,
		Status:      model.StatusTodo,
		Priority:    priority,
		Category:    category,
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update validates and replaces an existing task. Overdue tasks cannot be
// edited; use ChangeStatus to pull them back first.
func (s *TaskService) Update(ctx context.Context, task model.Task) (*model.Task, error) {
	current, err := s.store.Get(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusOverdue {
		return nil, model.Validationf("overdue tasks cannot be edited")
	}

	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return nil, model.Validationf("title must not be empty")
	}
	if task.DueDate.IsZero() {
		return nil, model.Validationf("due date must be set")
	}
	// Completed tasks may keep a past due date.
	if task.Status != model.StatusDone && task.DueDate.Before(s.now()) {
		return nil, model.Validationf("due date must not be in the past")
	}
	if !task.Priority.Valid() {
		return nil, model.Validationf("unknown priority %q", task.Priority)
	}
	if !task.Category.Valid() {
		return nil, model.Validationf("unknown category %q", task.Category)
	}
	if !task.Status.Valid() {
		return nil, model.Validationf("unknown status %q", task.Status)
	}

	if err := s.checkDuplicate(ctx, task.Title, task.DueDate, task.ID); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, task)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ChangeStatus sets a task's status by explicit user action. This is the
// only path out of overdue.
func (s *TaskService) ChangeStatus(ctx context.Context, id string, status model.Status) (*model.Task, error) {
	if !status.Valid() {
		return nil, model.Validationf("unknown status %q", status)
	}
	task, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == status {
		return &task, nil
	}
	task.Status = status
	updated, err := s.store.Update(ctx, task)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Get returns a single task by id.
func (s *TaskService) Get(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns a snapshot of every task.
func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.store.List(ctx)
}

// Delete removes a task completely.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// checkDuplicate rejects a second task with the same title (case-insensitive)
// on the same calendar day. Same-day tasks with different titles, and
// same-title tasks on different days, are allowed.
func (s *TaskService) checkDuplicate(ctx context.Context, title string, due time.Time, excludeID string) error {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID == excludeID {
			continue
		}
		if strings.EqualFold(t.Title, title) && model.SameDay(t.DueDate, due) {
			return model.Validationf("a task titled %q already exists on that day", title)
		}
	}
	return nil
}
