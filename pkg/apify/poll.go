package apify

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxWait      = 2 * time.Minute
)

// RunFailedError is returned when a run ends in FAILED, ABORTED or TIMED-OUT.
// Re-running the same input is not expected to help.
type RunFailedError struct {
	RunID   string
	Status  string
	Message string
}

func (e *RunFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apify: run %s ended with status %s", e.RunID, e.Status)
	}
	return fmt.Sprintf("apify: run %s ended with status %s: %s", e.RunID, e.Status, e.Message)
}

// WaitTimeoutError is returned when a run is still active after the wait
// budget. The run may succeed if started again later.
type WaitTimeoutError struct {
	RunID  string
	Waited time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("apify: run %s not finished after %s", e.RunID, e.Waited)
}

// PollOption configures run polling.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	maxWait  time.Duration
}

// WithPollInterval overrides the fixed interval between status checks.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxWait overrides the total wait budget.
func WithMaxWait(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// PollRun polls GetRun at a fixed interval until the run reaches a terminal
// status. SUCCEEDED returns the run; other terminal statuses return a
// *RunFailedError; an exhausted wait budget returns a *WaitTimeoutError.
func PollRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*Run, error) {
	cfg := pollConfig{interval: defaultPollInterval, maxWait: defaultMaxWait}
	for _, opt := range opts {
		opt(&cfg)
	}

	deadline := time.Now().Add(cfg.maxWait)
	for {
		run, err := client.GetRun(ctx, runID)
		if err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("apify: poll run %s", runID))
		}

		if run.Terminal() {
			if run.Status == StatusSucceeded {
				return run, nil
			}
			return nil, &RunFailedError{RunID: runID, Status: run.Status, Message: run.StatusMessage}
		}

		if time.Now().Add(cfg.interval).After(deadline) {
			return nil, &WaitTimeoutError{RunID: runID, Waited: cfg.maxWait}
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), fmt.Sprintf("apify: poll run %s cancelled", runID))
		case <-time.After(cfg.interval):
		}
	}
}
