// Package jobs defines the schedulable units of background work and the
// queue abstractions that move them. Synchronization and webhook registration
// run as independent task units dispatched to a shared worker pool; a failed
// transient task is re-enqueued as a new deferred unit rather than retried in
// place.
package jobs

import (
	"context"
	"time"
)

// TaskType discriminates what a task does.
type TaskType string

const (
	// TaskTypeSyncAccount refreshes one account from the upstream API.
	TaskTypeSyncAccount TaskType = "sync_account"
	// TaskTypeRegisterWebhook registers the public webhook URL for one token.
	TaskTypeRegisterWebhook TaskType = "register_webhook"
)

// TaskStatus represents the current status of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting to be processed.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task is currently being processed.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed terminally.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusRetrying indicates the task failed transiently and has been
	// rescheduled.
	TaskStatusRetrying TaskStatus = "retrying"
)

// Task is one unit of background work. AccountID and Token identify the
// subject depending on Type.
type Task struct {
	// TaskID is the unique identifier for this task.
	TaskID string `json:"task_id"`

	// Type selects the handler behavior.
	Type TaskType `json:"type"`

	// AccountID is the local account the task operates on.
	AccountID int64 `json:"account_id,omitempty"`

	// Token is the upstream access token, set for webhook registration.
	Token string `json:"token,omitempty"`

	// Status is the current status of the task.
	Status TaskStatus `json:"status"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the task started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the task completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the task failed.
	Error string `json:"error,omitempty"`

	// Attempt counts executions of this task, starting at 1.
	Attempt int `json:"attempt"`
}

// Handler processes one task. Returning an error that classifies as
// transient makes the queue reschedule the task per its policy.
type Handler func(ctx context.Context, task *Task) error

// Publisher defines the interface for publishing tasks to a queue.
// This abstraction allows for different queue implementations.
type Publisher interface {
	// Publish enqueues a task for asynchronous processing.
	Publish(ctx context.Context, task *Task) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming tasks from a queue.
type Consumer interface {
	// Start begins consuming tasks from the queue.
	// The handler function is called for each task received.
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming tasks and waits for in-flight tasks to complete.
	Stop(ctx context.Context) error
}

// TaskStore defines the interface for storing and retrieving task status.
type TaskStore interface {
	// SaveTask saves or updates a task's state.
	SaveTask(ctx context.Context, task *Task) error

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// ListTasks retrieves tasks with optional filtering.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error)
}

// TaskFilter defines filtering criteria for listing tasks.
type TaskFilter struct {
	// Type filters tasks by type.
	Type TaskType

	// Status filters tasks by status.
	Status TaskStatus

	// AccountID filters tasks by account.
	AccountID int64
}
