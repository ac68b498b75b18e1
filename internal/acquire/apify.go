package acquire

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/pkg/apify"
)

// ApifyProvider acquires a post by running a platform-specific scraping actor.
type ApifyProvider struct {
	client   apify.Client
	actors   map[model.Platform]string
	pollOpts []apify.PollOption
}

// NewApifyProvider creates a provider. Platforms without an actor are not
// supported.
func NewApifyProvider(client apify.Client, actors map[model.Platform]string, pollOpts ...apify.PollOption) *ApifyProvider {
	return &ApifyProvider{client: client, actors: actors, pollOpts: pollOpts}
}

// Name implements Provider.
func (p *ApifyProvider) Name() string { return "apify" }

// Supports implements Provider.
func (p *ApifyProvider) Supports(rawURL string) bool {
	return p.actors[DetectPlatform(rawURL)] != ""
}

// Acquire starts the actor, waits for it to finish and normalizes the first
// dataset record.
func (p *ApifyProvider) Acquire(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	platform := DetectPlatform(rawURL)
	actor := p.actors[platform]
	if actor == "" {
		return nil, NewError(p.Name(), rawURL, false, eris.Errorf("no actor configured for platform %s", platform))
	}

	run, err := p.client.StartRun(ctx, actor, actorInput(platform, rawURL))
	if err != nil {
		return nil, Classify(p.Name(), rawURL, err)
	}

	run, err = apify.PollRun(ctx, p.client, run.ID, p.pollOpts...)
	if err != nil {
		return nil, Classify(p.Name(), rawURL, err)
	}

	items, err := p.client.DatasetItems(ctx, run.DefaultDatasetID, 1)
	if err != nil {
		return nil, Classify(p.Name(), rawURL, err)
	}
	if len(items) == 0 {
		return nil, NewError(p.Name(), rawURL, false, eris.New("actor returned no results"))
	}

	content := normalizeRecord(items[0], rawURL, platform)
	content.Provider = p.Name()
	return content, nil
}

// actorInput builds the run input each platform's actor expects.
func actorInput(platform model.Platform, rawURL string) map[string]any {
	switch platform {
	case model.PlatformTikTok:
		return map[string]any{
			"postURLs":                []string{rawURL},
			"resultsPerPage":          1,
			"shouldDownloadVideos":    false,
			"shouldDownloadCovers":    false,
			"shouldDownloadSubtitles": true,
		}
	case model.PlatformInstagram:
		return map[string]any{
			"directUrls":   []string{rawURL},
			"resultsType":  "posts",
			"resultsLimit": 1,
		}
	case model.PlatformYouTube:
		return map[string]any{
			"startUrls":         []map[string]string{{"url": rawURL}},
			"maxResults":        1,
			"downloadSubtitles": true,
			"subtitlesLanguage": "en",
			"subtitlesFormat":   "plaintext",
		}
	}
	return map[string]any{
		"startUrls":    []map[string]string{{"url": rawURL}},
		"resultsLimit": 1,
	}
}

// Candidate keys per field, in preference order. Actors disagree on naming;
// dotted keys walk nested objects.
var (
	captionKeys    = []string{"text", "caption", "description", "desc"}
	titleKeys      = []string{"title", "name"}
	transcriptKeys = []string{"transcript", "subtitles", "subtitlesText"}
	videoKeys      = []string{"videoUrl", "video_url", "videoUrlNoWaterMark", "videoMeta.downloadAddr", "mediaUrls.0"}
	thumbnailKeys  = []string{"thumbnailUrl", "displayUrl", "thumbnail", "coverUrl", "videoMeta.coverUrl", "imageUrl"}
	imageListKeys  = []string{"images", "imageUrls", "slideshowImageLinks"}
	durationKeys   = []string{"duration", "videoDuration", "videoMeta.duration"}
	viewKeys       = []string{"playCount", "viewCount", "videoViewCount", "videoPlayCount", "views"}
	likeKeys       = []string{"diggCount", "likesCount", "likes"}
	creatorKeys    = []string{"authorMeta.name", "ownerUsername", "channelName", "author", "user.username"}
	typeKeys       = []string{"type", "productType", "mediaType"}
)

func normalizeRecord(rec map[string]any, rawURL string, platform model.Platform) *model.AcquiredContent {
	content := &model.AcquiredContent{
		URL:          rawURL,
		Platform:     platform,
		Caption:      strings.TrimSpace(firstString(rec, captionKeys...)),
		Title:        strings.TrimSpace(firstString(rec, titleKeys...)),
		Transcript:   strings.TrimSpace(firstString(rec, transcriptKeys...)),
		VideoURL:     firstString(rec, videoKeys...),
		ThumbnailURL: firstString(rec, thumbnailKeys...),
		ImageURLs:    firstStringList(rec, imageListKeys...),
		Engagement: &model.Engagement{
			Views:   firstInt(rec, viewKeys...),
			Likes:   firstInt(rec, likeKeys...),
			Creator: firstString(rec, creatorKeys...),
		},
	}
	if content.Title == content.Caption {
		content.Title = ""
	}
	if d := firstFloat(rec, durationKeys...); d != nil && *d > 0 {
		content.Engagement.DurationSeconds = d
	}

	content.ContentType = DetectContentType(rawURL, platform)
	switch strings.ToLower(firstString(rec, typeKeys...)) {
	case "sidecar", "carousel", "slideshow":
		content.ContentType = model.ContentTypeSlideshow
	case "image", "photo":
		content.ContentType = model.ContentTypePhoto
	case "clips", "reel":
		content.ContentType = model.ContentTypeReel
	case "video":
		if !content.ContentType.IsVideo() {
			content.ContentType = model.ContentTypeVideo
		}
	}
	if len(content.ImageURLs) > 1 && content.VideoURL == "" && !content.ContentType.IsImageBased() {
		content.ContentType = model.ContentTypeSlideshow
	}
	return content
}

func lookup(rec map[string]any, key string) (any, bool) {
	var cur any = rec
	for _, part := range strings.Split(key, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

func firstString(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := lookup(rec, k)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if strings.TrimSpace(s) != "" {
				return s
			}
		case map[string]any:
			// e.g. {"url": "..."} media objects
			if u, ok := s["url"].(string); ok && u != "" {
				return u
			}
		}
	}
	return ""
}

func firstStringList(rec map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := lookup(rec, k)
		if !ok {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			continue
		}
		var out []string
		for _, item := range list {
			switch s := item.(type) {
			case string:
				if s != "" {
					out = append(out, s)
				}
			case map[string]any:
				for _, field := range []string{"url", "displayUrl", "imageUrl"} {
					if u, ok := s[field].(string); ok && u != "" {
						out = append(out, u)
						break
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstFloat(rec map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		v, ok := lookup(rec, k)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return &n
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func firstInt(rec map[string]any, keys ...string) *int64 {
	if f := firstFloat(rec, keys...); f != nil {
		n := int64(*f)
		return &n
	}
	return nil
}
