package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Options bounds one retry schedule. Every call to Do starts fresh;
// this is a bounded-attempt helper, not a circuit breaker.
type Options struct {
	Retries      int           // extra attempts after the first (R >= 0)
	InitialDelay time.Duration // d0 > 0
	MaxDelay     time.Duration // cap on the backoff delay; defaults to 10s
	Factor       float64       // multiplicative backoff rate; defaults to 2
}

func (o Options) withDefaults() Options {
	if o.MaxDelay <= 0 {
		o.MaxDelay = 10 * time.Second
	}
	if o.Factor <= 1 {
		o.Factor = 2
	}
	return o
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: Do gives up immediately instead of
// consuming the remaining attempt budget. Used for structural failures a
// retry can never fix, like a venue not offering an asset at all.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// sleep is swapped out by tests to observe the backoff schedule.
var sleep = func(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Do executes op up to opts.Retries+1 times, backing off exponentially between
// failed attempts. Exhaustion reports (zero, false) rather than an error;
// callers treat "no result" as failure for their unit of work.
func Do[T any](ctx context.Context, logger *zap.Logger, name string, opts Options, op func(ctx context.Context) (T, error)) (T, bool) {
	opts = opts.withDefaults()
	delay := opts.InitialDelay

	var zero T
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, true
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			logger.Warn("retry.permanent_failure",
				zap.String("op", name),
				zap.Int("attempt", attempt+1),
				zap.Error(perm.err))
			return zero, false
		}

		if attempt == opts.Retries {
			logger.Error("retry.exhausted",
				zap.String("op", name),
				zap.Int("attempts", opts.Retries+1),
				zap.Error(err))
			return zero, false
		}

		delay = min(time.Duration(float64(delay)*opts.Factor), opts.MaxDelay)

		logger.Warn("retry.attempt_failed",
			zap.String("op", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", opts.Retries+1),
			zap.Duration("next_delay", delay),
			zap.Error(err))

		sleep(ctx, delay)
		if ctx.Err() != nil {
			return zero, false
		}
	}

	return zero, false
}
