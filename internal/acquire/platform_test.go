package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/recipe-cli/internal/model"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want model.Platform
	}{
		{"https://www.tiktok.com/@chef/video/7300000000000000000", model.PlatformTikTok},
		{"https://vm.tiktok.com/ZMabc123/", model.PlatformTikTok},
		{"https://www.instagram.com/reel/Cabc123/", model.PlatformInstagram},
		{"https://youtu.be/dQw4w9WgXcQ", model.PlatformYouTube},
		{"https://m.youtube.com/shorts/abc", model.PlatformYouTube},
		{"https://fb.watch/abc/", model.PlatformFacebook},
		{"https://www.facebook.com/reel/123", model.PlatformFacebook},
		{"https://pin.it/abc", model.PlatformPinterest},
		{"https://www.pinterest.co.uk/pin/123/", model.PlatformPinterest},
		{"https://www.seriouseats.com/best-chili-recipe", model.PlatformCookingWebsite},
		{"ftp://example.com/file", model.PlatformUnknown},
		{"not a url", model.PlatformUnknown},
		{"", model.PlatformUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		url  string
		want model.ContentType
	}{
		{"https://www.tiktok.com/@chef/video/1", model.ContentTypeVideo},
		{"https://www.tiktok.com/@chef/photo/1", model.ContentTypePhoto},
		{"https://www.instagram.com/reel/abc/", model.ContentTypeReel},
		{"https://www.instagram.com/p/abc/", model.ContentTypePhoto},
		{"https://www.youtube.com/shorts/abc", model.ContentTypeShort},
		{"https://www.youtube.com/watch?v=abc", model.ContentTypeVideo},
		{"https://www.pinterest.com/pin/123/", model.ContentTypePhoto},
		{"https://www.bonappetit.com/recipe/pasta", model.ContentTypePhoto},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(tt.url, DetectPlatform(tt.url)))
		})
	}
}
