// Package retry provides bounded, policy-driven retrying of fallible actions.
// A Policy is a first-class value owned by the caller, not metadata attached
// to a function; account sync and webhook registration carry independently
// tuned policies.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
)

// Policy bounds how an action is retried. Backoff is the delay before the
// second attempt; when MaxBackoff is larger than Backoff the delay doubles
// per attempt up to MaxBackoff, otherwise it stays fixed.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// Default policies, mirroring the two schedules the upstream sync has always
// used: account refresh retries slowly, webhook registration quickly.
// SingleAttempt runs an action exactly once; work dispatched through the task
// queue uses it so a transient failure is re-enqueued as a deferred task
// instead of blocking a worker in backoff sleeps.
var (
	SyncPolicy            = Policy{MaxAttempts: 5, Backoff: 60 * time.Second}
	WebhookRegisterPolicy = Policy{MaxAttempts: 7, Backoff: 5 * time.Second, MaxBackoff: 40 * time.Second}
	SingleAttempt         = Policy{MaxAttempts: 1}
)

// Delay returns the backoff before the given attempt (1-based; attempt 1 has
// no delay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.Backoff
	if p.MaxBackoff > p.Backoff {
		for i := 2; i < attempt; i++ {
			d *= 2
			if d >= p.MaxBackoff {
				return p.MaxBackoff
			}
		}
	}
	return d
}

// Retryable reports whether an error is worth retrying. Only transient
// upstream conditions qualify; validation and authorization failures
// propagate immediately without consuming an attempt.
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrTransientUpstream)
}

// ExhaustedError is the terminal failure after MaxAttempts transient
// failures. It deliberately does not unwrap to domain.ErrTransientUpstream,
// so an exhausted action is not re-queued by an outer layer.
type ExhaustedError struct {
	Name     string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Name, e.Attempts, e.Last)
}

// Runner executes actions under a Policy.
type Runner struct {
	log zerolog.Logger
}

// NewRunner creates a Runner logging retry decisions to log.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log}
}

// Execute runs action, retrying transient failures per policy. Non-retryable
// errors are returned as-is from the first failing attempt. When attempts run
// out the returned error is an *ExhaustedError.
func (r *Runner) Execute(ctx context.Context, name string, policy Policy, action func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if delay := policy.Delay(attempt); delay > 0 {
			r.log.Debug().
				Str("action", name).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Backing off before retry")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = action(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}

		r.log.Warn().
			Err(lastErr).
			Str("action", name).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Msg("Transient failure")
	}

	// A single-attempt policy retried nothing, so its failure keeps its
	// transient classification for whatever scheduler owns rescheduling.
	if policy.MaxAttempts == 1 {
		return lastErr
	}
	return &ExhaustedError{Name: name, Attempts: policy.MaxAttempts, Last: lastErr}
}
