package model

// Platform identifies the social network a post originates from.
type Platform string

const (
	PlatformTikTok         Platform = "tiktok"
	PlatformInstagram      Platform = "instagram"
	PlatformYouTube        Platform = "youtube"
	PlatformFacebook       Platform = "facebook"
	PlatformPinterest      Platform = "pinterest"
	PlatformCookingWebsite Platform = "cooking_website"
	PlatformUnknown        Platform = "unknown"
)

// AllPlatforms returns all defined platforms.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformTikTok,
		PlatformInstagram,
		PlatformYouTube,
		PlatformFacebook,
		PlatformPinterest,
		PlatformCookingWebsite,
		PlatformUnknown,
	}
}

// ContentType describes the shape of the post's media.
type ContentType string

const (
	ContentTypeVideo     ContentType = "video"
	ContentTypePhoto     ContentType = "photo"
	ContentTypeSlideshow ContentType = "slideshow"
	ContentTypeReel      ContentType = "reel"
	ContentTypeShort     ContentType = "short"
)

// IsVideo reports whether the content type carries moving video. Reels and
// shorts are short-form video.
func (c ContentType) IsVideo() bool {
	switch c {
	case ContentTypeVideo, ContentTypeReel, ContentTypeShort:
		return true
	}
	return false
}

// IsImageBased reports whether the content is a single photo or a slideshow.
func (c ContentType) IsImageBased() bool {
	return c == ContentTypePhoto || c == ContentTypeSlideshow
}

// ProviderLegacy is the provider name stamped on content produced by the
// legacy fallback parser.
const ProviderLegacy = "legacy"

// Engagement holds optional post statistics.
type Engagement struct {
	Views           *int64   `json:"views,omitempty"`
	Likes           *int64   `json:"likes,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Creator         string   `json:"creator,omitempty"`
}

// AcquiredContent is the raw post content returned by a content provider.
// Provider and Platform are always set, even when every optional field is
// empty. It is built once per extraction and never persisted.
type AcquiredContent struct {
	URL          string      `json:"url"`
	Platform     Platform    `json:"platform"`
	ContentType  ContentType `json:"content_type"`
	Provider     string      `json:"provider"`
	Caption      string      `json:"caption,omitempty"`
	Title        string      `json:"title,omitempty"`
	Description  string      `json:"description,omitempty"`
	Transcript   string      `json:"transcript,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	VideoURL     string      `json:"video_url,omitempty"`
	ImageURLs    []string    `json:"image_urls,omitempty"`
	AudioURL     string      `json:"audio_url,omitempty"`
	Engagement   *Engagement `json:"engagement,omitempty"`
}

// HasCaption reports whether a non-blank caption was acquired.
func (c *AcquiredContent) HasCaption() bool {
	return hasText(c.Caption)
}

// HasTranscript reports whether a non-blank transcript was acquired.
func (c *AcquiredContent) HasTranscript() bool {
	return hasText(c.Transcript)
}

// Duration returns the video duration in seconds, or 0 when unknown.
func (c *AcquiredContent) Duration() float64 {
	if c.Engagement == nil || c.Engagement.DurationSeconds == nil {
		return 0
	}
	return *c.Engagement.DurationSeconds
}

func hasText(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
