package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-cli/internal/acquire"
	"github.com/sells-group/recipe-cli/internal/config"
	"github.com/sells-group/recipe-cli/internal/extract"
	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/internal/pipeline"
	"github.com/sells-group/recipe-cli/internal/resilience"
	"github.com/sells-group/recipe-cli/internal/scorer"
	"github.com/sells-group/recipe-cli/internal/visual"
	anthropicpkg "github.com/sells-group/recipe-cli/pkg/anthropic"
	"github.com/sells-group/recipe-cli/pkg/apify"
	"github.com/sells-group/recipe-cli/pkg/gemini"
	"github.com/sells-group/recipe-cli/pkg/supadata"
)

// extractEnv holds the long-lived clients behind an extraction. The clients
// are safe for concurrent use; Pipeline builds a fresh orchestrator over them.
type extractEnv struct {
	Acquire *acquire.Service
	Text    *extract.TextExtractor
	Scorer  *scorer.Scorer
	Visual  pipeline.VisualExtractor // nil when visual fallback is disabled
	Options pipeline.Options
}

// Pipeline returns a new orchestrator over the environment's clients.
func (e *extractEnv) Pipeline() *pipeline.Pipeline {
	return pipeline.New(e.Acquire, e.Text, e.Scorer, e.Visual, e.Options)
}

// initExtract validates c for mode and builds every client the extraction
// pipeline needs.
func initExtract(ctx context.Context, c *config.Config, mode string) (*extractEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	sc, err := initScorer(c.Scorer)
	if err != nil {
		return nil, err
	}

	ai := anthropicpkg.NewClient(c.Anthropic.Key, anthropicOptions(c.Anthropic)...)

	textCfg := extract.DefaultConfig()
	if c.Anthropic.Model != "" {
		textCfg.Model = c.Anthropic.Model
	}
	if c.Anthropic.MaxTokens > 0 {
		textCfg.MaxTokens = c.Anthropic.MaxTokens
	}
	textCfg.Temperature = c.Anthropic.Temperature

	env := &extractEnv{
		Acquire: initAcquire(c),
		Text:    extract.NewTextExtractor(ai, textCfg),
		Scorer:  sc,
		Options: pipeline.Options{
			VisualEnabled: c.Visual.Enabled,
			IncludeImages: c.Visual.IncludeImages,
		},
	}

	if c.Visual.Enabled {
		vision, err := gemini.NewClient(ctx, c.Gemini.Key,
			gemini.WithModel(c.Gemini.Model),
			gemini.WithBaseURL(c.Gemini.BaseURL),
			gemini.WithTimeout(seconds(c.Gemini.TimeoutSecs)),
		)
		if err != nil {
			return nil, eris.Wrap(err, "init gemini client")
		}
		env.Visual = visual.NewExtractor(
			visual.NewExecMediaTool(c.Visual),
			vision,
			ai,
			visual.FromConfig(c.Visual, c.Anthropic),
		)
	} else {
		zap.L().Info("visual fallback disabled")
	}

	return env, nil
}

func initScorer(c config.ScorerConfig) (*scorer.Scorer, error) {
	if err := scorer.ValidateConfig(c); err != nil {
		return nil, err
	}
	return scorer.New(c), nil
}

func anthropicOptions(c config.AnthropicConfig) []anthropicpkg.Option {
	var opts []anthropicpkg.Option
	if c.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(c.BaseURL))
	}
	if c.TimeoutSecs > 0 {
		opts = append(opts, anthropicpkg.WithTimeout(seconds(c.TimeoutSecs)))
	}
	return opts
}

// initAcquire builds the acquisition service. Providers without credentials
// are skipped; supadata goes first when both are configured.
func initAcquire(c *config.Config) *acquire.Service {
	var providers []acquire.Provider

	if c.Supadata.Key != "" {
		client := supadata.NewClient(c.Supadata.Key, supadataOptions(c.Supadata)...)
		providers = append(providers, acquire.NewSupadataProvider(client,
			supadata.WithPollInterval(millis(c.Supadata.PollIntervalMs)),
			supadata.WithMaxPollAttempts(c.Supadata.MaxPollAttempts),
		))
	} else {
		zap.L().Debug("RECIPE_SUPADATA_KEY not set, supadata provider disabled")
	}

	if c.Apify.Token != "" {
		client := apify.NewClient(c.Apify.Token, apifyOptions(c.Apify)...)
		providers = append(providers, acquire.NewApifyProvider(client, actorMap(c.Apify.Actors),
			apify.WithPollInterval(millis(c.Apify.PollIntervalMs)),
			apify.WithMaxWait(seconds(c.Apify.MaxWaitSecs)),
		))
	} else {
		zap.L().Debug("RECIPE_APIFY_TOKEN not set, apify provider disabled")
	}

	retry := resilience.FromRetryConfig(
		c.Acquisition.MaxRetries,
		c.Acquisition.BaseDelayMs,
		c.Acquisition.MaxDelayMs,
		c.Acquisition.JitterFraction,
	)
	svc := acquire.NewService(retry, providers...)
	if c.Acquisition.LegacyFallback {
		svc.WithLegacy(acquire.NewOpenGraphParser(seconds(c.Acquisition.LegacyTimeout)).Func())
	}

	zap.L().Debug("acquisition providers", zap.Strings("providers", svc.Providers()))
	return svc
}

func supadataOptions(c config.SupadataConfig) []supadata.Option {
	var opts []supadata.Option
	if c.BaseURL != "" {
		opts = append(opts, supadata.WithBaseURL(c.BaseURL))
	}
	if c.TimeoutSecs > 0 {
		opts = append(opts, supadata.WithTimeout(seconds(c.TimeoutSecs)))
	}
	if c.RateLimitRPS > 0 {
		opts = append(opts, supadata.WithRateLimit(c.RateLimitRPS))
	}
	return opts
}

func apifyOptions(c config.ApifyConfig) []apify.Option {
	var opts []apify.Option
	if c.BaseURL != "" {
		opts = append(opts, apify.WithBaseURL(c.BaseURL))
	}
	if c.TimeoutSecs > 0 {
		opts = append(opts, apify.WithTimeout(seconds(c.TimeoutSecs)))
	}
	return opts
}

// actorMap keys the configured actors by platform. Unknown platform names
// are dropped with a warning.
func actorMap(actors map[string]string) map[model.Platform]string {
	known := make(map[model.Platform]bool)
	for _, p := range model.AllPlatforms() {
		known[p] = true
	}

	out := make(map[model.Platform]string, len(actors))
	for name, actor := range actors {
		p := model.Platform(strings.ToLower(strings.TrimSpace(name)))
		if !known[p] {
			zap.L().Warn("ignoring apify actor for unknown platform", zap.String("platform", name))
			continue
		}
		if actor = strings.TrimSpace(actor); actor != "" {
			out[p] = actor
		}
	}
	return out
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }
