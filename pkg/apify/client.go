// Package apify provides a client for a hosted scraping-actor API. A scrape
// is an actor run: start it, poll it to a terminal status, then read one
// record from its default dataset.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/recipe-cli/internal/resilience"
)

const defaultBaseURL = "https://api.apify.com/v2"

// Run statuses. Everything except READY and RUNNING is terminal.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
)

// Client defines the actor run operations.
type Client interface {
	// StartRun starts an actor with the given JSON input.
	StartRun(ctx context.Context, actorID string, input any) (*Run, error)
	// GetRun returns the current state of a run.
	GetRun(ctx context.Context, runID string) (*Run, error)
	// DatasetItems returns up to limit records from a dataset.
	DatasetItems(ctx context.Context, datasetID string, limit int) ([]map[string]any, error)
}

// Run describes an actor run.
type Run struct {
	ID               string    `json:"id"`
	ActID            string    `json:"actId"`
	Status           string    `json:"status"`
	StatusMessage    string    `json:"statusMessage"`
	DefaultDatasetID string    `json:"defaultDatasetId"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
}

// Terminal reports whether the run has stopped.
func (r *Run) Terminal() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusTimedOut:
		return true
	}
	return false
}

type runEnvelope struct {
	Data Run `json:"data"`
}

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRateLimit caps requests per second issued by this client.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new client authenticated with an API token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartRun(ctx context.Context, actorID string, input any) (*Run, error) {
	var env runEnvelope
	path := "/acts/" + url.PathEscape(actorID) + "/runs"
	if err := c.do(ctx, http.MethodPost, path, input, &env); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: start run %s", actorID))
	}
	return &env.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var env runEnvelope
	if err := c.do(ctx, http.MethodGet, "/actor-runs/"+url.PathEscape(runID), nil, &env); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: get run %s", runID))
	}
	return &env.Data, nil
}

func (c *httpClient) DatasetItems(ctx context.Context, datasetID string, limit int) ([]map[string]any, error) {
	q := url.Values{"format": {"json"}, "clean": {"true"}}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var items []map[string]any
	path := "/datasets/" + url.PathEscape(datasetID) + "/items?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: dataset items %s", datasetID))
	}
	return items, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limiter")
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
