// Package visual recovers a recipe from what a video shows rather than what
// its caption says. It samples a handful of frames (or takes a post's
// images), asks a vision model what each frame contains, and consolidates
// the per-frame observations into a single recipe.
//
// Known limitation: frames are analyzed in concurrent batches with a fixed
// delay between batches and per-frame backoff on rate-limit errors. There is
// no token bucket shared across concurrent extractions, so heavy parallel
// load against one vision API key can still be throttled.
package visual

import (
	"time"

	"github.com/sells-group/recipe-cli/internal/config"
)

// Config controls sampling, analysis and consolidation.
type Config struct {
	MaxFrames        int
	MinFrameBytes    int
	BatchSize        int
	BatchDelay       time.Duration
	MaxRetries       int
	RateLimitBackoff time.Duration
	MaxBackoff       time.Duration
	RetryDelay       time.Duration
	WorkDir          string

	ConsolidationModel     string
	ConsolidationMaxTokens int64
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MaxFrames:              8,
		MinFrameBytes:          2048,
		BatchSize:              3,
		BatchDelay:             time.Second,
		MaxRetries:             2,
		RateLimitBackoff:       2 * time.Second,
		MaxBackoff:             30 * time.Second,
		RetryDelay:             time.Second,
		ConsolidationModel:     "claude-sonnet-4-5-20250929",
		ConsolidationMaxTokens: 2048,
	}
}

// FromConfig maps loaded settings onto a Config. Zero values keep defaults.
func FromConfig(v config.VisualConfig, a config.AnthropicConfig) Config {
	cfg := DefaultConfig()
	cfg.WorkDir = v.WorkDir
	if v.MaxFrames > 0 {
		cfg.MaxFrames = v.MaxFrames
	}
	if v.MinFrameBytes > 0 {
		cfg.MinFrameBytes = v.MinFrameBytes
	}
	if v.BatchSize > 0 {
		cfg.BatchSize = v.BatchSize
	}
	if v.BatchDelayMs >= 0 {
		cfg.BatchDelay = time.Duration(v.BatchDelayMs) * time.Millisecond
	}
	if v.MaxRetries >= 0 {
		cfg.MaxRetries = v.MaxRetries
	}
	if v.RateLimitBackoffMs > 0 {
		cfg.RateLimitBackoff = time.Duration(v.RateLimitBackoffMs) * time.Millisecond
	}
	if v.RetryDelayMs >= 0 {
		cfg.RetryDelay = time.Duration(v.RetryDelayMs) * time.Millisecond
	}
	if a.Model != "" {
		cfg.ConsolidationModel = a.Model
	}
	return cfg
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxFrames <= 0 {
		c.MaxFrames = def.MaxFrames
	}
	if c.MinFrameBytes <= 0 {
		c.MinFrameBytes = def.MinFrameBytes
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = def.RateLimitBackoff
	}
	if c.MaxBackoff < c.RateLimitBackoff {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.ConsolidationModel == "" {
		c.ConsolidationModel = def.ConsolidationModel
	}
	if c.ConsolidationMaxTokens <= 0 {
		c.ConsolidationMaxTokens = def.ConsolidationMaxTokens
	}
	return c
}
