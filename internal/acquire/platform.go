package acquire

import (
	"net/url"
	"strings"

	"github.com/sells-group/recipe-cli/internal/model"
)

// DetectPlatform maps a post URL to its platform by host. Any other http(s)
// host is treated as a cooking website.
func DetectPlatform(rawURL string) model.Platform {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return model.PlatformUnknown
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	switch {
	case hostIs(host, "tiktok.com"):
		return model.PlatformTikTok
	case hostIs(host, "instagram.com") || host == "instagr.am":
		return model.PlatformInstagram
	case hostIs(host, "youtube.com") || host == "youtu.be":
		return model.PlatformYouTube
	case hostIs(host, "facebook.com") || host == "fb.watch" || host == "fb.com":
		return model.PlatformFacebook
	case host == "pin.it" || strings.HasPrefix(host, "pinterest.") || strings.Contains(host, ".pinterest."):
		return model.PlatformPinterest
	}
	return model.PlatformCookingWebsite
}

func hostIs(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// DetectContentType guesses the media shape from the URL path. Providers
// refine it once they see the actual media.
func DetectContentType(rawURL string, platform model.Platform) model.ContentType {
	path := ""
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		path = strings.ToLower(u.Path)
	}

	switch {
	case strings.Contains(path, "/photo/"):
		return model.ContentTypePhoto
	case strings.Contains(path, "/reel/") || strings.Contains(path, "/reels/"):
		return model.ContentTypeReel
	case strings.HasPrefix(path, "/shorts/"):
		return model.ContentTypeShort
	case platform == model.PlatformInstagram && strings.HasPrefix(path, "/p/"):
		return model.ContentTypePhoto
	}

	switch platform {
	case model.PlatformPinterest, model.PlatformCookingWebsite:
		return model.ContentTypePhoto
	}
	return model.ContentTypeVideo
}
