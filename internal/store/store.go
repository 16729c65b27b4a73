// Package store owns the canonical in-memory task collection and persists
// it as one JSON blob after every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"studynote/internal/model"
	"studynote/internal/repository"
)

// TasksKey is the fixed blob key the whole collection is stored under.
const TasksKey = "tasks"

// ErrTaskNotFound is returned by Get, Update and Delete for unknown ids.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore holds the collection behind a mutex. Every call waits the
// configured latency first, modelling an out-of-process store; mutations
// write the full collection back before returning. A failed write is logged
// and swallowed, so within a session the in-memory state stays
// authoritative.
type TaskStore struct {
	mu      sync.Mutex
	tasks   []model.Task
	kv      *repository.KV
	latency time.Duration
}

// New loads the persisted collection and returns a ready store. An absent
// or corrupt blob yields an empty collection.
func New(ctx context.Context, kv *repository.KV, latency time.Duration) (*TaskStore, error) {
	s := &TaskStore{kv: kv, latency: latency}

	raw, err := kv.Get(ctx, TasksKey)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.tasks); err != nil {
			log.Printf("[warn] stored tasks unreadable, starting empty: %v", err)
			s.tasks = nil
		}
	}

	return s, nil
}

// List returns a snapshot copy of every task.
func (s *TaskStore) List(ctx context.Context) ([]model.Task, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

// Get returns a copy of the task with the given id.
func (s *TaskStore) Get(ctx context.Context, id string) (model.Task, error) {
	if err := s.wait(ctx); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// Create assigns an id, appends the task and persists the collection.
func (s *TaskStore) Create(ctx context.Context, task model.Task) (model.Task, error) {
	if err := s.wait(ctx); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = uuid.NewString()
	s.tasks = append(s.tasks, task.Clone())
	s.persist(ctx)
	return task, nil
}

// Update replaces the stored task with the same id.
func (s *TaskStore) Update(ctx context.Context, task model.Task) (model.Task, error) {
	if err := s.wait(ctx); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tasks {
		if t.ID == task.ID {
			s.tasks[i] = task.Clone()
			s.persist(ctx)
			return task, nil
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// Delete removes the task with the given id.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return ErrTaskNotFound
}

// persist writes the whole collection under TasksKey. Write failures are
// logged, not returned: the in-memory collection stays authoritative for
// the session. Caller holds the mutex.
func (s *TaskStore) persist(ctx context.Context) {
	raw, err := json.Marshal(s.tasks)
	if err != nil {
		log.Printf("[warn] marshal tasks: %v", err)
		return
	}
	if err := s.kv.Set(ctx, TasksKey, raw); err != nil {
		log.Printf("[warn] persist tasks: %v", err)
	}
}

// wait models the fixed round-trip latency of an out-of-process store.
func (s *TaskStore) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
