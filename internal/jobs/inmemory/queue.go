package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/jobs"
	"github.com/Iron-Cow/MonoProject/internal/retry"
)

// Queue is an in-memory implementation of task publisher and consumer.
// It uses Go channels for task distribution and is safe for concurrent use.
// This implementation is suitable for single-instance deployments and testing.
// For production multi-instance deployments, migrate to a broker-backed queue.
type Queue struct {
	taskChan  chan *jobs.Task
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.TaskStore
	policy    retry.Policy
	workers   int
	log       zerolog.Logger
	closed    bool
}

// NewQueue creates a new in-memory task queue. bufferSize determines how many
// tasks can be queued before Publish blocks; policy governs rescheduling of
// transiently failed tasks.
func NewQueue(bufferSize, workers int, policy retry.Policy, store jobs.TaskStore, log zerolog.Logger) *Queue {
	if workers <= 0 {
		workers = 5
	}
	return &Queue{
		taskChan:  make(chan *jobs.Task, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		policy:    policy,
		workers:   workers,
		log:       log,
	}
}

// Publish implements the Publisher interface.
// It enqueues a task for asynchronous processing.
func (q *Queue) Publish(ctx context.Context, task *jobs.Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	// Generate task ID if not provided
	if task.TaskID == "" {
		task.TaskID = uuid.New().String()
	}

	// Set initial status and timestamp
	if task.Status == "" {
		task.Status = jobs.TaskStatusPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	// Save task to store
	if q.store != nil {
		if err := q.store.SaveTask(ctx, task); err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
	}

	// Enqueue task with context cancellation support
	select {
	case q.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
// It starts consuming tasks from the queue and processes them using the
// provided handler, up to the configured number of concurrent workers.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes tasks from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case task := <-q.taskChan:
			if task == nil {
				return
			}

			q.processTask(ctx, task, handler)
		}
	}
}

// processTask executes a single task. A transient failure within the policy's
// attempt budget reschedules the task as a new deferred unit of work; a
// non-retryable failure or an exhausted budget marks it failed.
func (q *Queue) processTask(ctx context.Context, task *jobs.Task, handler jobs.Handler) {
	task.Status = jobs.TaskStatusRunning
	task.Attempt++
	now := time.Now()
	task.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveTask(ctx, task)
	}

	err := handler(ctx, task)

	completedAt := time.Now()
	task.CompletedAt = &completedAt

	if err != nil {
		task.Error = err.Error()

		if retry.Retryable(err) && task.Attempt < q.policy.MaxAttempts {
			task.Status = jobs.TaskStatusRetrying

			backoff := q.policy.Delay(task.Attempt + 1)
			q.log.Warn().
				Err(err).
				Str("task_id", task.TaskID).
				Str("type", string(task.Type)).
				Int("attempt", task.Attempt).
				Dur("backoff", backoff).
				Msg("Task rescheduled")

			time.AfterFunc(backoff, func() {
				task.Status = jobs.TaskStatusPending
				task.StartedAt = nil
				task.CompletedAt = nil
				_ = q.Publish(ctx, task)
			})
		} else {
			task.Status = jobs.TaskStatusFailed
			q.log.Error().
				Err(err).
				Str("task_id", task.TaskID).
				Str("type", string(task.Type)).
				Int("attempt", task.Attempt).
				Msg("Task failed")
		}
	} else {
		task.Status = jobs.TaskStatusCompleted
		task.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveTask(ctx, task)
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight tasks to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
// It closes the queue and releases resources.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
