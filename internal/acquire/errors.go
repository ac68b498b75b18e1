package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/recipe-cli/internal/resilience"
	"github.com/sells-group/recipe-cli/pkg/apify"
	"github.com/sells-group/recipe-cli/pkg/supadata"
)

// Error is a single provider's acquisition failure.
type Error struct {
	Provider  string
	URL       string
	Retryable bool
	Cause     error
}

// NewError builds an acquisition error.
func NewError(provider, url string, retryable bool, cause error) *Error {
	return &Error{Provider: provider, URL: url, Retryable: retryable, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("acquire: %s failed for %s", e.Provider, e.URL)
	}
	return fmt.Sprintf("acquire: %s failed for %s: %v", e.Provider, e.URL, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether an acquisition failure is worth another
// attempt against the same provider. Typed errors carry their own flag;
// anything else falls back to transient-error detection.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return resilience.IsTransient(err)
}

// Classify converts a raw provider failure into an *Error, deciding
// retryability from the failure's shape: rate limits, timeouts and 5xx are
// retryable; 4xx, terminal actor runs and malformed input are not.
func Classify(provider, url string, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return NewError(provider, url, classifyRetryable(err), err)
}

func classifyRetryable(err error) bool {
	var te *resilience.TransientError
	if errors.As(err, &te) {
		return true
	}
	var supaErr *supadata.APIError
	if errors.As(err, &supaErr) {
		return resilience.IsTransientHTTPStatus(supaErr.StatusCode)
	}
	var apifyErr *apify.APIError
	if errors.As(err, &apifyErr) {
		return resilience.IsTransientHTTPStatus(apifyErr.StatusCode)
	}
	var runErr *apify.RunFailedError
	if errors.As(err, &runErr) {
		return false
	}
	var waitErr *apify.WaitTimeoutError
	if errors.As(err, &waitErr) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return resilience.IsTransient(err)
}

// Failure records one provider's failure inside an AggregateError.
type Failure struct {
	Provider  string `json:"provider"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// AggregateError is returned when every supported provider, and the legacy
// fallback if configured, failed to acquire a URL.
type AggregateError struct {
	URL      string    `json:"url"`
	Failures []Failure `json:"failures"`
}

func (e *AggregateError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("acquire: no provider supports %s", e.URL)
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		kind := "non-retryable"
		if f.Retryable {
			kind = "retryable"
		}
		parts[i] = fmt.Sprintf("%s: %s (%s)", f.Provider, f.Message, kind)
	}
	return fmt.Sprintf("acquire: all providers failed for %s: %s", e.URL, strings.Join(parts, "; "))
}

func failureOf(provider string, err error) Failure {
	f := Failure{Provider: provider, Message: err.Error()}
	var ae *Error
	if errors.As(err, &ae) {
		f.Retryable = ae.Retryable
		if ae.Cause != nil {
			f.Message = ae.Cause.Error()
		}
		return f
	}
	f.Retryable = resilience.IsTransient(err)
	return f
}
