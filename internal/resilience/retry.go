// Package resilience provides retry with exponential backoff for calls to
// upstream content and AI services.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first try.
	// A value of 1 disables retries. Default: 3.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Default: 1s.
	BaseDelay time.Duration

	// MaxDelay caps the un-jittered delay. Default: 10s.
	MaxDelay time.Duration

	// JitterFraction spreads each delay uniformly across ±fraction of its
	// value. Default: 0.2.
	JitterFraction float64

	// ShouldRetry decides whether a failure is retryable. If nil, IsTransient
	// is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the 1-based retry
	// number, the failure and the delay about to be slept.
	OnRetry func(retry int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the retry configuration used for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		JitterFraction: 0.2,
	}
}

// Do executes fn with retry according to cfg. Non-retryable failures return
// immediately without consuming further attempts. Context cancellation stops
// retries.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions returning a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) {
			return zero, lastErr
		}

		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		delay := Delay(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		if err := Sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the un-jittered delay before retry n (0-indexed):
// min(BaseDelay * 2^n, MaxDelay).
func Backoff(n int, cfg RetryConfig) time.Duration {
	cfg = applyDefaults(cfg)
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(n))
	if delay > float64(cfg.MaxDelay) || math.IsInf(delay, 1) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// Delay returns Backoff(n) with uniform jitter of ±JitterFraction applied.
func Delay(n int, cfg RetryConfig) time.Duration {
	cfg = applyDefaults(cfg)
	delay := float64(Backoff(n, cfg))
	if cfg.JitterFraction > 0 {
		spread := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

// RetryLogger returns an OnRetry callback that logs each retry.
func RetryLogger(service, operation string) func(int, error, time.Duration) {
	return func(retry int, err error, delay time.Duration) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("retry", retry),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
}
