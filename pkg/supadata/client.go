// Package supadata provides a client for a metadata + transcript API for
// social video posts. Transcripts for long media are produced asynchronously:
// the API answers 202 with a job ID that must be polled.
package supadata

import (
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

const defaultBaseURL = "https://api.supadata.ai/v1"

// Client defines the metadata and transcript operations.
type Client interface {
	// Metadata fetches caption, title, media and stats for a post URL.
	Metadata(ctx context.Context, postURL string) (*Metadata, error)
	// Transcript requests a transcript. The response carries either the
	// content or a JobID to poll with TranscriptJob.
	Transcript(ctx context.Context, postURL string) (*TranscriptResponse, error)
	// TranscriptJob returns the state of an asynchronous transcript job.
	TranscriptJob(ctx context.Context, jobID string) (*TranscriptJobResponse, error)
}

// Metadata is the response from GET /metadata.
type Metadata struct {
	Platform    string   `json:"platform"`
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      Author   `json:"author"`
	Stats       Stats    `json:"stats"`
	Media       Media    `json:"media"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"createdAt"`
}

// Author identifies the post creator.
type Author struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Stats holds engagement counters. Nil means the platform did not report it.
type Stats struct {
	Views    *int64 `json:"views"`
	Likes    *int64 `json:"likes"`
	Comments *int64 `json:"comments"`
	Shares   *int64 `json:"shares"`
}

// Media describes the post's media payload.
type Media struct {
	Type         string      `json:"type"` // "video", "image", "carousel"
	Duration     float64     `json:"duration"`
	ThumbnailURL string      `json:"thumbnailUrl"`
	URL          string      `json:"url"`
	Items        []MediaItem `json:"items"`
}

// MediaItem is one entry of a carousel.
type MediaItem struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// TranscriptResponse is the response from GET /transcript. Exactly one of
// Content or JobID is set.
type TranscriptResponse struct {
	Content string `json:"content"`
	Lang    string `json:"lang"`
	JobID   string `json:"jobId"`
}

// Pending reports whether the transcript is being produced asynchronously.
func (r *TranscriptResponse) Pending() bool {
	return r.JobID != "" && r.Content == ""
}

// Job statuses returned by GET /transcript/{jobId}.
const (
	JobQueued    = "queued"
	JobActive    = "active"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// TranscriptJobResponse is the response from GET /transcript/{jobId}.
type TranscriptJobResponse struct {
	Status  string `json:"status"`
	Content string `json:"content"`
	Lang    string `json:"lang"`
	Error   string `json:"error"`
}

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supadata: HTTP %d: %s", e.StatusCode, e.Body)
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
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Metadata(ctx context.Context, postURL string) (*Metadata, error) {
	var resp Metadata
	q := url.Values{"url": {postURL}}
	if err := c.get(ctx, "/metadata?"+q.Encode(), &resp); err != nil {
		return nil, eris.Wrap(err, "supadata: metadata")
	}
	return &resp, nil
}

func (c *httpClient) Transcript(ctx context.Context, postURL string) (*TranscriptResponse, error) {
	var resp TranscriptResponse
	q := url.Values{"url": {postURL}, "text": {"true"}}
	if err := c.get(ctx, "/transcript?"+q.Encode(), &resp); err != nil {
		return nil, eris.Wrap(err, "supadata: transcript")
	}
	return &resp, nil
}

func (c *httpClient) TranscriptJob(ctx context.Context, jobID string) (*TranscriptJobResponse, error) {
	var resp TranscriptJobResponse
	if err := c.get(ctx, "/transcript/"+url.PathEscape(jobID), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("supadata: transcript job %s", jobID))
	}
	return &resp, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

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
