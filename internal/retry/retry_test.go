package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
)

func TestDelay(t *testing.T) {
	fixed := Policy{MaxAttempts: 5, Backoff: 60 * time.Second}
	doubling := Policy{MaxAttempts: 7, Backoff: 5 * time.Second, MaxBackoff: 40 * time.Second}

	tests := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"first attempt has no delay", fixed, 1, 0},
		{"fixed second attempt", fixed, 2, 60 * time.Second},
		{"fixed fifth attempt", fixed, 5, 60 * time.Second},
		{"doubling second attempt", doubling, 2, 5 * time.Second},
		{"doubling third attempt", doubling, 3, 10 * time.Second},
		{"doubling fourth attempt", doubling, 4, 20 * time.Second},
		{"doubling fifth attempt", doubling, 5, 40 * time.Second},
		{"doubling capped at max", doubling, 7, 40 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient upstream", domain.ErrTransientUpstream, true},
		{"wrapped transient", errors.Join(errors.New("ctx"), domain.ErrTransientUpstream), true},
		{"upstream data", domain.ErrUpstreamData, false},
		{"validation", domain.NewValidationError("field", "bad"), false},
		{"exhausted is terminal", &ExhaustedError{Name: "x", Attempts: 5, Last: domain.ErrTransientUpstream}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecuteRetriesTransientUntilExhausted(t *testing.T) {
	runner := NewRunner(zerolog.Nop())
	policy := Policy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := runner.Execute(context.Background(), "always-transient", policy, func(ctx context.Context) error {
		calls++
		return domain.ErrTransientUpstream
	})

	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("exhausted.Attempts = %d, want 3", exhausted.Attempts)
	}
	if Retryable(err) {
		t.Error("exhausted error must not classify as retryable")
	}
}

func TestExecuteSingleAttemptKeepsTransientClassification(t *testing.T) {
	runner := NewRunner(zerolog.Nop())

	calls := 0
	err := runner.Execute(context.Background(), "queued-sync", SingleAttempt, func(ctx context.Context) error {
		calls++
		return domain.ErrTransientUpstream
	})

	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
	if !Retryable(err) {
		t.Error("single-attempt failure must stay retryable for the outer scheduler")
	}
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	runner := NewRunner(zerolog.Nop())
	policy := Policy{MaxAttempts: 5, Backoff: time.Millisecond}

	calls := 0
	wantErr := domain.ErrUpstreamData
	err := runner.Execute(context.Background(), "bad-data", policy, func(ctx context.Context) error {
		calls++
		return wantErr
	})

	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestExecuteSucceedsAfterTransientFailures(t *testing.T) {
	runner := NewRunner(zerolog.Nop())
	policy := Policy{MaxAttempts: 5, Backoff: time.Millisecond}

	calls := 0
	err := runner.Execute(context.Background(), "flaky", policy, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return domain.ErrTransientUpstream
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	runner := NewRunner(zerolog.Nop())
	policy := Policy{MaxAttempts: 3, Backoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- runner.Execute(ctx, "stuck", policy, func(ctx context.Context) error {
			calls++
			return domain.ErrTransientUpstream
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 attempt before cancellation, got %d", calls)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
}
