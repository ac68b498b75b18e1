package resilience

import (
	"time"
)

// FromRetryConfig converts config values to a RetryConfig. maxRetries counts
// retries after the first attempt, so the result allows maxRetries+1 attempts.
// Non-positive values keep the defaults.
func FromRetryConfig(maxRetries, baseDelayMs, maxDelayMs int, jitterFraction float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxRetries >= 0 {
		cfg.MaxAttempts = maxRetries + 1
	}
	if baseDelayMs > 0 {
		cfg.BaseDelay = time.Duration(baseDelayMs) * time.Millisecond
	}
	if maxDelayMs > 0 {
		cfg.MaxDelay = time.Duration(maxDelayMs) * time.Millisecond
	}
	if jitterFraction >= 0 {
		cfg.JitterFraction = jitterFraction
	}
	return cfg
}
