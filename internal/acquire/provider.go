// Package acquire fetches raw post content from upstream content providers,
// retrying each with backoff and failing over in priority order.
package acquire

import (
	"context"

	"github.com/sells-group/recipe-cli/internal/model"
)

// Provider acquires post content from one upstream API.
type Provider interface {
	// Name identifies the provider in logs, errors and results.
	Name() string
	// Supports reports whether the provider handles the URL. It must not
	// perform I/O.
	Supports(rawURL string) bool
	// Acquire fetches the post. Failures should be *Error so the service
	// can tell whether a retry is worthwhile.
	Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error)
}

// TranscriptProvider is a Provider with a dedicated transcript capability.
// Transcript returns "" with a nil error when the post has no transcript.
type TranscriptProvider interface {
	Provider
	Transcript(ctx context.Context, rawURL string) (string, error)
}

// LegacyFunc is a last-resort acquisition function, typically an HTML
// metadata parser.
type LegacyFunc func(ctx context.Context, rawURL string) (*model.AcquiredContent, error)

// legacyProvider adapts a LegacyFunc to Provider. It supports every URL.
type legacyProvider struct {
	fn LegacyFunc
}

func (l legacyProvider) Name() string { return model.ProviderLegacy }

func (l legacyProvider) Supports(string) bool { return true }

func (l legacyProvider) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	content, err := l.fn(ctx, rawURL)
	if err != nil {
		return nil, Classify(model.ProviderLegacy, rawURL, err)
	}
	if content == nil {
		return nil, NewError(model.ProviderLegacy, rawURL, false, nil)
	}
	content.Provider = model.ProviderLegacy
	return content, nil
}
