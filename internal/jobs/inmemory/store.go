package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Cow/MonoProject/internal/jobs"
)

// Store is an in-memory implementation of TaskStore.
// It stores tasks in memory and is safe for concurrent use.
// Data is lost on service restart - for persistence, use a database-backed store.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*jobs.Task
}

// NewStore creates a new in-memory task store.
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*jobs.Task),
	}
}

// SaveTask implements the TaskStore interface.
// It saves or updates a task in memory.
func (s *Store) SaveTask(ctx context.Context, task *jobs.Task) error {
	if task.TaskID == "" {
		return fmt.Errorf("task ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Create a copy to avoid external modifications
	taskCopy := *task
	s.tasks[task.TaskID] = &taskCopy

	return nil
}

// GetTask implements the TaskStore interface.
// It retrieves a task by ID from memory.
func (s *Store) GetTask(ctx context.Context, taskID string) (*jobs.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}

	taskCopy := *task
	return &taskCopy, nil
}

// ListTasks implements the TaskStore interface.
// It retrieves tasks with optional filtering from memory.
func (s *Store) ListTasks(ctx context.Context, filter jobs.TaskFilter) ([]*jobs.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.Task
	for _, task := range s.tasks {
		if filter.Type != "" && task.Type != filter.Type {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.AccountID != 0 && task.AccountID != filter.AccountID {
			continue
		}
		taskCopy := *task
		result = append(result, &taskCopy)
	}

	return result, nil
}

// Ensure Store implements the TaskStore interface.
var _ jobs.TaskStore = (*Store)(nil)
