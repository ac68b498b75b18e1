package acquire

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/pkg/supadata"
)

// SupadataProvider acquires metadata and, for video posts, a transcript.
type SupadataProvider struct {
	client   supadata.Client
	pollOpts []supadata.PollOption
}

// NewSupadataProvider creates a provider over a supadata client.
func NewSupadataProvider(client supadata.Client, pollOpts ...supadata.PollOption) *SupadataProvider {
	return &SupadataProvider{client: client, pollOpts: pollOpts}
}

// Name implements Provider.
func (p *SupadataProvider) Name() string { return "supadata" }

// Supports implements Provider.
func (p *SupadataProvider) Supports(rawURL string) bool {
	switch DetectPlatform(rawURL) {
	case model.PlatformTikTok, model.PlatformInstagram, model.PlatformYouTube, model.PlatformFacebook:
		return true
	}
	return false
}

// Acquire fetches metadata, then the transcript if the post is a video. A
// transcript failure leaves Transcript empty and does not fail the call.
func (p *SupadataProvider) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	meta, err := p.client.Metadata(ctx, rawURL)
	if err != nil {
		return nil, Classify(p.Name(), rawURL, err)
	}

	platform := DetectPlatform(rawURL)
	content := &model.AcquiredContent{
		URL:          rawURL,
		Platform:     platform,
		ContentType:  supadataContentType(meta.Media, DetectContentType(rawURL, platform)),
		Provider:     p.Name(),
		Caption:      strings.TrimSpace(meta.Description),
		Title:        strings.TrimSpace(meta.Title),
		ThumbnailURL: meta.Media.ThumbnailURL,
		Engagement: &model.Engagement{
			Views:   meta.Stats.Views,
			Likes:   meta.Stats.Likes,
			Creator: meta.Author.Username,
		},
	}
	if meta.Media.Duration > 0 {
		d := meta.Media.Duration
		content.Engagement.DurationSeconds = &d
	}

	switch {
	case content.ContentType.IsVideo():
		content.VideoURL = meta.Media.URL
	case len(meta.Media.Items) > 0:
		for _, item := range meta.Media.Items {
			if item.URL != "" && item.Type != "video" {
				content.ImageURLs = append(content.ImageURLs, item.URL)
			}
		}
	case meta.Media.URL != "":
		content.ImageURLs = []string{meta.Media.URL}
	}

	if content.ContentType.IsVideo() {
		transcript, err := p.Transcript(ctx, rawURL)
		if err != nil {
			zap.L().Warn("acquire: supadata transcript unavailable",
				zap.String("url", rawURL),
				zap.Error(err),
			)
		}
		content.Transcript = transcript
	}

	return content, nil
}

// Transcript implements TranscriptProvider. Pending jobs are polled; a job
// that never finishes yields "".
func (p *SupadataProvider) Transcript(ctx context.Context, rawURL string) (string, error) {
	resp, err := p.client.Transcript(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if !resp.Pending() {
		return strings.TrimSpace(resp.Content), nil
	}
	text, err := supadata.PollTranscript(ctx, p.client, resp.JobID, p.pollOpts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// supadataContentType refines the URL-derived guess with the media type
// reported by the API.
func supadataContentType(media supadata.Media, guess model.ContentType) model.ContentType {
	switch strings.ToLower(media.Type) {
	case "carousel", "slideshow":
		return model.ContentTypeSlideshow
	case "image", "photo":
		if len(media.Items) > 1 {
			return model.ContentTypeSlideshow
		}
		return model.ContentTypePhoto
	case "video":
		if guess.IsVideo() {
			return guess
		}
		return model.ContentTypeVideo
	}
	return guess
}
