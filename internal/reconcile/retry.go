package reconcile

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	apperrors "github.com/busway/busway/internal/errors"
)

const (
	backoffBase   = 500 * time.Millisecond
	backoffFactor = 2
	backoffCap    = 8 * time.Second
)

// backoffDelay returns the jittered delay before the attempt after
// attempt. Delays double from the base up to the cap, then jitter picks
// a value in [delay/2, delay).
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase
	for i := 1; i < attempt; i++ {
		delay *= backoffFactor
		if delay >= backoffCap {
			delay = backoffCap
			break
		}
	}
	half := delay / 2
	return half + rand.N(half)
}

// sleepContext waits out the delay unless the context ends first.
func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retry runs fn under the node attempt policy: each attempt gets its own
// timeout, transient and conflict errors back off and retry until the
// attempt cap, everything else fails immediately. It returns the number
// of attempts made and the last error.
func (e *Engine) retry(ctx context.Context, opts Options, log *slog.Logger, fn func(ctx context.Context) error) (int, error) {
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.AttemptTimeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil || !apperrors.IsRetryable(err) || attempt >= opts.MaxAttempts {
			return attempt, err
		}

		delay := backoffDelay(attempt)
		log.Warn("attempt failed, backing off",
			"attempt", attempt,
			"delay", delay.String(),
			"error", err)
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			// Cancelled mid-backoff. The attempt error stays the cause.
			return attempt, err
		}
	}
}
