package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry defaults for one match-and-respond attempt.
const (
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = time.Second
	DefaultDegradeAfter = 2
)

// RetryOptions configures Retry.
type RetryOptions struct {
	MaxAttempts int
	Delay       time.Duration
	// OnRetry is called after every failed attempt, the last one included.
	OnRetry func(attempt int, err error)
	// Reporter, when set, receives every failure under "retry_operation".
	Reporter ErrorReporter
}

type permanentError struct{ err error }

func (e *permanentError) Error() string  { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns it unwrapped
// immediately, without logging it or calling OnRetry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs op up to MaxAttempts times with a fixed Delay between attempts
// and returns the last error once attempts are exhausted. A panic inside op
// counts as a failure. Once ctx is cancelled, a failure is returned as is
// without being logged or reported to OnRetry.
func Retry(ctx context.Context, opts RetryOptions, op func(ctx context.Context) error) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	delay := max(opts.Delay, 0)
	backoff := retry.WithMaxRetries(uint64(opts.MaxAttempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := guard(ctx, op)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm
		}
		if ctx.Err() != nil {
			return err
		}
		if opts.Reporter != nil {
			opts.Reporter.LogError(err, "retry_operation", map[string]any{
				"attempt":      attempt,
				"max_attempts": opts.MaxAttempts,
			})
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}
		return retry.RetryableError(err)
	})

	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

// guard runs op, converting a panic into an error.
func guard(ctx context.Context, op func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered panic: %v", r)
		}
	}()
	return op(ctx)
}

// WithFallback returns op's result, or fallback when op fails. Failures are
// logged under component.
func WithFallback[T any](op func() (T, error), fallback T, reporter ErrorReporter, component string) T {
	v, err := op()
	if err != nil {
		if reporter != nil {
			reporter.LogError(err, component, map[string]any{"used_fallback": true})
		}
		return fallback
	}
	return v
}

// DegradationMessage picks the user-facing message shown while a failing
// turn is still being retried.
func DegradationMessage(err error) string {
	if err == nil {
		return degradedDefault
	}
	msg := err.Error()
	switch {
	case containsAny(msg, []string{"network", "fetch", "connection"}):
		return degradedConnection
	case errors.Is(err, context.DeadlineExceeded) || containsAny(msg, []string{"timeout", "timed out"}):
		return degradedTimeout
	case containsAny(msg, []string{"data", "parse", "JSON"}):
		return degradedData
	}
	return degradedDefault
}

// TypingDelay is the simulated typing time for text: a fixed time per
// character, clamped to [minDelay, maxDelay].
func TypingDelay(text string, perChar, minDelay, maxDelay time.Duration) time.Duration {
	d := time.Duration(len([]rune(text))) * perChar
	return min(max(d, minDelay), maxDelay)
}
