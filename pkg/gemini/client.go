// Package gemini wraps the Google GenAI SDK for single-image vision prompts.
package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// maxImageBytes bounds a downloaded image.
const maxImageBytes = 20 << 20

// Image references one image, either by URL or inline bytes. Data wins when
// both are set.
type Image struct {
	URL      string
	Data     []byte
	MIMEType string
}

// Response is the text answer plus token usage.
type Response struct {
	Text  string
	Usage Usage
}

// Usage tracks token consumption for one call.
type Usage struct {
	PromptTokens   int64
	ResponseTokens int64
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"gemini-2.5-flash":      {0.30, 2.50},
	"gemini-2.5-flash-lite": {0.10, 0.40},
	"gemini-2.5-pro":        {1.25, 10.00},
}

// EstimateCost computes an estimated cost in USD. Returns 0 for unknown models.
func (u Usage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return (float64(u.PromptTokens)/1e6)*pricing[0] + (float64(u.ResponseTokens)/1e6)*pricing[1]
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u Usage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.PromptTokens),
		zap.Int64("output_tokens", u.ResponseTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}

// Client asks a vision model about one image.
type Client interface {
	Describe(ctx context.Context, prompt string, image Image) (*Response, error)
	Model() string
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *sdkClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the *http.Client used for SDK calls and image downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sdkClient) {
		c.http = hc
	}
}

// WithTimeout bounds each Describe call, image download included.
func WithTimeout(d time.Duration) Option {
	return func(c *sdkClient) {
		c.timeout = d
	}
}

type sdkClient struct {
	client  *genai.Client
	model   string
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	c := &sdkClient{
		model:   defaultModel,
		http:    &http.Client{Timeout: 60 * time.Second},
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.http,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	c.client = client
	return c, nil
}

func (c *sdkClient) Model() string {
	return c.model
}

func (c *sdkClient) Describe(ctx context.Context, prompt string, image Image) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, mimeType := image.Data, image.MIMEType
	if len(data) == 0 {
		if image.URL == "" {
			return nil, eris.New("gemini: image has neither data nor url")
		}
		var err error
		data, mimeType, err = c.download(ctx, image.URL)
		if err != nil {
			return nil, err
		}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &Response{Text: responseText(resp)}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:   int64(resp.UsageMetadata.PromptTokenCount),
			ResponseTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func (c *sdkClient) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "gemini: create image request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "gemini: download image")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", eris.New(fmt.Sprintf("gemini: download image: HTTP %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", eris.Wrap(err, "gemini: read image")
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// responseText concatenates the text parts of the first candidate that has any.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}
