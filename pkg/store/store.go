package store

import (
	"log/slog"
	"sync"

	"github.com/harrisonrobin/cadence/pkg/model"
)

// TaskStore is the in-memory collection of tasks for the signed-in user.
// Order is the order of the last Replace. Category membership is computed
// at read time from each task's Frequency.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  []model.Task
	logger *slog.Logger
}

func New(logger *slog.Logger) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{logger: logger.With("component", "task_store")}
}

// List returns the tasks in freq, or every task when freq is empty.
func (s *TaskStore) List(freq model.Frequency) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if freq == "" || freq.Matches(t.Frequency) {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the task with id.
func (s *TaskStore) Get(id int64) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Categories lists the distinct categories present, in first-seen order.
func (s *TaskStore) Categories() []model.Frequency {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[model.Frequency]bool)
	var out []model.Frequency
	for _, t := range s.tasks {
		c := t.Category()
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Replace swaps in a new collection. Later duplicates of an id are dropped.
func (s *TaskStore) Replace(tasks []model.Task) {
	next := make([]model.Task, 0, len(tasks))
	seen := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			s.logger.Warn("dropping duplicate task id", "task_id", t.ID)
			continue
		}
		seen[t.ID] = true
		next = append(next, t)
	}

	s.mu.Lock()
	s.tasks = next
	s.mu.Unlock()
}

// Remove deletes the task with id. Absent ids are ignored.
func (s *TaskStore) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
}

// Update merges patch into the task with id and reports whether it existed.
func (s *TaskStore) Update(id int64, patch model.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.tasks[i] = patch.Apply(s.tasks[i])
	return true
}

func (s *TaskStore) indexOf(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
