package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/jobs"
	"github.com/Iron-Cow/MonoProject/internal/retry"
)

var testPolicy = retry.Policy{MaxAttempts: 2, Backoff: time.Millisecond}

// waitForStatus polls the store until the task reaches the wanted status.
func waitForStatus(t *testing.T, store jobs.TaskStore, taskID string, want jobs.TaskStatus) *jobs.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task, err := store.GetTask(context.Background(), taskID)
		if err == nil && task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	task, _ := store.GetTask(context.Background(), taskID)
	t.Fatalf("task %s never reached %s (last: %+v)", taskID, want, task)
	return nil
}

func TestPublishAssignsIdentityAndStatus(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, testPolicy, store, zerolog.Nop())
	defer q.Close()

	task := &jobs.Task{Type: jobs.TaskTypeSyncAccount, AccountID: 1}
	if err := q.Publish(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if task.TaskID == "" {
		t.Error("expected a generated task id")
	}
	if task.Status != jobs.TaskStatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
	if task.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	stored, err := store.GetTask(context.Background(), task.TaskID)
	if err != nil {
		t.Fatalf("task not saved: %v", err)
	}
	if stored.AccountID != 1 {
		t.Errorf("stored account id = %d, want 1", stored.AccountID)
	}
}

func TestQueueProcessesTask(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, testPolicy, store, zerolog.Nop())
	defer q.Close()

	handled := make(chan *jobs.Task, 1)
	if err := q.Start(context.Background(), func(ctx context.Context, task *jobs.Task) error {
		handled <- task
		return nil
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	task := &jobs.Task{Type: jobs.TaskTypeSyncAccount, AccountID: 7}
	if err := q.Publish(context.Background(), task); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-handled:
		if got.AccountID != 7 {
			t.Errorf("handled account id = %d, want 7", got.AccountID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task was never handled")
	}

	done := waitForStatus(t, store, task.TaskID, jobs.TaskStatusCompleted)
	if done.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", done.Attempt)
	}
	if done.Error != "" {
		t.Errorf("error = %q, want empty", done.Error)
	}
}

func TestQueueReschedulesTransientFailure(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, testPolicy, store, zerolog.Nop())
	defer q.Close()

	calls := 0
	if err := q.Start(context.Background(), func(ctx context.Context, task *jobs.Task) error {
		calls++
		if calls == 1 {
			return domain.ErrTransientUpstream
		}
		return nil
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	task := &jobs.Task{Type: jobs.TaskTypeSyncAccount}
	if err := q.Publish(context.Background(), task); err != nil {
		t.Fatalf("publish: %v", err)
	}

	done := waitForStatus(t, store, task.TaskID, jobs.TaskStatusCompleted)
	if done.Attempt != 2 {
		t.Errorf("attempt = %d, want 2", done.Attempt)
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}

func TestQueueFailsTerminallyWhenBudgetExhausted(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, testPolicy, store, zerolog.Nop())
	defer q.Close()

	calls := 0
	if err := q.Start(context.Background(), func(ctx context.Context, task *jobs.Task) error {
		calls++
		return domain.ErrTransientUpstream
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	task := &jobs.Task{Type: jobs.TaskTypeSyncAccount}
	if err := q.Publish(context.Background(), task); err != nil {
		t.Fatalf("publish: %v", err)
	}

	done := waitForStatus(t, store, task.TaskID, jobs.TaskStatusFailed)
	if done.Attempt != testPolicy.MaxAttempts {
		t.Errorf("attempt = %d, want %d", done.Attempt, testPolicy.MaxAttempts)
	}
	if calls != testPolicy.MaxAttempts {
		t.Errorf("handler calls = %d, want %d", calls, testPolicy.MaxAttempts)
	}
}

func TestQueueDoesNotRetryNonTransientFailure(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, testPolicy, store, zerolog.Nop())
	defer q.Close()

	calls := 0
	if err := q.Start(context.Background(), func(ctx context.Context, task *jobs.Task) error {
		calls++
		return errors.New("bad data")
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	task := &jobs.Task{Type: jobs.TaskTypeSyncAccount}
	if err := q.Publish(context.Background(), task); err != nil {
		t.Fatalf("publish: %v", err)
	}

	done := waitForStatus(t, store, task.TaskID, jobs.TaskStatusFailed)
	if done.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", done.Attempt)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
	if done.Error == "" {
		t.Error("expected error details on the stored task")
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	q := NewQueue(10, 1, testPolicy, NewStore(), zerolog.Nop())
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	err := q.Publish(context.Background(), &jobs.Task{Type: jobs.TaskTypeSyncAccount})
	if err == nil {
		t.Error("expected publish on closed queue to fail")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	q := NewQueue(10, 1, testPolicy, NewStore(), zerolog.Nop())
	ctx := context.Background()

	if err := q.Stop(ctx); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestStoreListFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	tasks := []*jobs.Task{
		{TaskID: "1", Type: jobs.TaskTypeSyncAccount, Status: jobs.TaskStatusCompleted, AccountID: 1},
		{TaskID: "2", Type: jobs.TaskTypeSyncAccount, Status: jobs.TaskStatusFailed, AccountID: 2},
		{TaskID: "3", Type: jobs.TaskTypeRegisterWebhook, Status: jobs.TaskStatusCompleted, AccountID: 1},
	}
	for _, task := range tasks {
		if err := store.SaveTask(ctx, task); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	byType, err := store.ListTasks(ctx, jobs.TaskFilter{Type: jobs.TaskTypeSyncAccount})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("by type: got %d tasks, want 2", len(byType))
	}

	byAccount, err := store.ListTasks(ctx, jobs.TaskFilter{AccountID: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byAccount) != 2 {
		t.Errorf("by account: got %d tasks, want 2", len(byAccount))
	}

	failed, err := store.ListTasks(ctx, jobs.TaskFilter{Status: jobs.TaskStatusFailed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(failed) != 1 || failed[0].TaskID != "2" {
		t.Errorf("by status: got %+v", failed)
	}
}
