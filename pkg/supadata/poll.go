package supadata

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInterval    = time.Second
	defaultMaxPollAttempts = 30
)

// PollOption configures transcript job polling.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval    time.Duration
	maxAttempts int
}

// WithPollInterval overrides the fixed interval between status checks.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxPollAttempts bounds how many status checks are made.
func WithMaxPollAttempts(n int) PollOption {
	return func(c *pollConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// PollTranscript checks a transcript job at a fixed interval until it
// completes, fails, or the attempt budget runs out. An exhausted budget is
// not an error: it returns an empty transcript and a nil error, because a
// missing transcript is an expected outcome.
func PollTranscript(ctx context.Context, client Client, jobID string, opts ...PollOption) (string, error) {
	cfg := pollConfig{interval: defaultPollInterval, maxAttempts: defaultMaxPollAttempts}
	for _, opt := range opts {
		opt(&cfg)
	}

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		job, err := client.TranscriptJob(ctx, jobID)
		if err != nil {
			return "", eris.Wrap(err, fmt.Sprintf("supadata: poll transcript job %s", jobID))
		}

		switch job.Status {
		case JobCompleted:
			return job.Content, nil
		case JobFailed:
			return "", eris.Errorf("supadata: transcript job %s failed: %s", jobID, job.Error)
		}

		if attempt == cfg.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", eris.Wrap(ctx.Err(), fmt.Sprintf("supadata: poll transcript job %s cancelled", jobID))
		case <-time.After(cfg.interval):
		}
	}

	zap.L().Debug("supadata: transcript job still pending, giving up",
		zap.String("job_id", jobID),
		zap.Int("attempts", cfg.maxAttempts),
	)
	return "", nil
}
