package errors

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts counts the initial call. Values below 1 mean one attempt.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// BackoffFactor multiplies the delay after each failed attempt.
	BackoffFactor float64

	// Jitter spreads each delay by up to this fraction in either direction.
	Jitter float64

	// RetryableFunc replaces IsRetryable when set.
	RetryableFunc func(error) bool

	// OnRetry is called before each backoff sleep with the failed attempt
	// number (1-based), its error and the delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetry suits interactive turns: a user is waiting for the reply.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{MaxAttempts: 1}

// RetryResult is the outcome of WithRetryContext.
type RetryResult[T any] struct {
	Value T
	// Err is a *CategorizedError when every attempt failed.
	Err      error
	Attempts int
	Duration time.Duration
}

// WithRetryContext calls fn until it succeeds, returns a non-retryable
// error, runs out of attempts, or ctx is done. Upstream Retry-After hints
// are honoured up to MaxBackoff.
func WithRetryContext[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) RetryResult[T] {
	start := time.Now()
	attempts := max(cfg.MaxAttempts, 1)
	retryable := cfg.RetryableFunc
	if retryable == nil {
		retryable = IsRetryable
	}
	done := func(n int, err error, note string) RetryResult[T] {
		return RetryResult[T]{
			Err:      &CategorizedError{Err: err, Category: Categorize(err), Attempts: n, Context: note},
			Attempts: n,
			Duration: time.Since(start),
		}
	}

	backoff := cfg.InitialBackoff
	var lastErr error
	for n := 1; n <= attempts; n++ {
		if err := ctx.Err(); err != nil {
			return done(n-1, err, "context cancelled")
		}

		v, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{Value: v, Attempts: n, Duration: time.Since(start)}
		}
		lastErr = err
		if !retryable(err) {
			return done(n, err, "")
		}
		if n == attempts {
			break
		}

		delay := cfg.delay(backoff, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(n, err, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return done(n, ctx.Err(), "context cancelled during backoff")
		case <-timer.C:
		}
		backoff = min(time.Duration(float64(backoff)*cfg.BackoffFactor), cfg.MaxBackoff)
	}
	return done(attempts, lastErr, "max retries exceeded")
}

// delay picks the sleep before the next attempt.
func (cfg RetryConfig) delay(backoff time.Duration, err error) time.Duration {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return min(httpErr.RetryAfter, max(cfg.MaxBackoff, backoff))
	}
	if cfg.Jitter <= 0 {
		return backoff
	}
	spread := float64(backoff) * cfg.Jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(backoff) + spread)
}
