package acquire

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/internal/resilience"
)

// Service tries providers in priority order. Each supported provider gets up
// to MaxAttempts tries; a non-retryable failure moves straight to the next
// provider. The legacy fallback, when set, runs once after all providers.
type Service struct {
	providers []Provider
	legacy    Provider
	retry     resilience.RetryConfig
}

// NewService creates a Service. Providers are tried in the order given.
func NewService(retry resilience.RetryConfig, providers ...Provider) *Service {
	return &Service{
		providers: providers,
		retry:     retry,
	}
}

// WithLegacy sets the last-resort acquisition function.
func (s *Service) WithLegacy(fn LegacyFunc) *Service {
	if fn != nil {
		s.legacy = legacyProvider{fn: fn}
	}
	return s
}

// Providers returns the configured provider names in priority order.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers)+1)
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	if s.legacy != nil {
		names = append(names, s.legacy.Name())
	}
	return names
}

// Acquire returns the content of the first provider that succeeds. When all
// fail it returns an *AggregateError with one Failure per attempted provider.
func (s *Service) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	agg := &AggregateError{URL: rawURL}

	for _, p := range s.providers {
		if !p.Supports(rawURL) {
			zap.L().Debug("acquire: provider does not support url",
				zap.String("provider", p.Name()),
				zap.String("url", rawURL),
			)
			continue
		}

		content, err := s.attempt(ctx, p, rawURL)
		if err == nil {
			return s.finalize(content, p.Name(), rawURL), nil
		}

		f := failureOf(p.Name(), err)
		agg.Failures = append(agg.Failures, f)
		zap.L().Warn("acquire: provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.String("url", rawURL),
			zap.Bool("retryable", f.Retryable),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return nil, agg
		}
	}

	if s.legacy != nil {
		zap.L().Info("acquire: falling back to legacy parser", zap.String("url", rawURL))
		content, err := s.legacy.Acquire(ctx, rawURL)
		if err == nil {
			return s.finalize(content, model.ProviderLegacy, rawURL), nil
		}
		agg.Failures = append(agg.Failures, failureOf(s.legacy.Name(), err))
		zap.L().Warn("acquire: legacy parser failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
	}

	zap.L().Error("acquire: all providers failed",
		zap.String("url", rawURL),
		zap.Int("failures", len(agg.Failures)),
	)
	return nil, agg
}

// attempt runs one provider with retry. Only retryable failures consume
// further attempts.
func (s *Service) attempt(ctx context.Context, p Provider, rawURL string) (*model.AcquiredContent, error) {
	cfg := s.retry
	cfg.ShouldRetry = IsRetryable
	cfg.OnRetry = resilience.RetryLogger(p.Name(), "acquire")

	attempt := 0
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*model.AcquiredContent, error) {
		attempt++
		zap.L().Debug("acquire: attempting provider",
			zap.String("provider", p.Name()),
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
		)
		start := time.Now()
		content, err := p.Acquire(ctx, rawURL)
		if err != nil {
			return nil, Classify(p.Name(), rawURL, err)
		}
		if content == nil {
			return nil, NewError(p.Name(), rawURL, false, nil)
		}
		zap.L().Info("acquire: provider succeeded",
			zap.String("provider", p.Name()),
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", time.Since(start)),
		)
		return content, nil
	})
}

// finalize guarantees Provider and Platform are populated.
func (s *Service) finalize(content *model.AcquiredContent, provider, rawURL string) *model.AcquiredContent {
	if content.URL == "" {
		content.URL = rawURL
	}
	if provider == model.ProviderLegacy || content.Provider == "" {
		content.Provider = provider
	}
	if content.Platform == "" {
		content.Platform = DetectPlatform(rawURL)
	}
	if content.ContentType == "" {
		content.ContentType = DetectContentType(rawURL, content.Platform)
	}
	return content
}

// GetTranscript returns the post's transcript, or "" when none is
// obtainable. Dedicated transcript providers are tried first, then the full
// acquisition path. It never fails: a missing transcript is expected.
func (s *Service) GetTranscript(ctx context.Context, rawURL string) string {
	for _, p := range s.providers {
		tp, ok := p.(TranscriptProvider)
		if !ok || !p.Supports(rawURL) {
			continue
		}
		transcript, err := tp.Transcript(ctx, rawURL)
		if err != nil {
			zap.L().Warn("acquire: transcript provider failed",
				zap.String("provider", p.Name()),
				zap.String("url", rawURL),
				zap.Error(err),
			)
			continue
		}
		if transcript != "" {
			return transcript
		}
	}

	content, err := s.Acquire(ctx, rawURL)
	if err != nil {
		zap.L().Info("acquire: no transcript available",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return ""
	}
	return content.Transcript
}
