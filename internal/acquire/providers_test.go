package acquire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/pkg/apify"
	"github.com/sells-group/recipe-cli/pkg/supadata"
)

func TestSupadataProvider_Supports(t *testing.T) {
	p := NewSupadataProvider(nil)
	assert.True(t, p.Supports("https://www.tiktok.com/@a/video/1"))
	assert.True(t, p.Supports("https://youtu.be/abc"))
	assert.False(t, p.Supports("https://pin.it/abc"))
	assert.False(t, p.Supports("https://example.com/recipe"))
}

func TestSupadataProvider_AcquireVideoWithAsyncTranscript(t *testing.T) {
	var jobPolls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/metadata":
			w.Write([]byte(`{"platform":"tiktok","type":"video","title":"","description":"Garlic noodles 🍜 #recipe",` + //nolint:errcheck
				`"author":{"username":"noodlequeen"},"stats":{"views":5000,"likes":300},` +
				`"media":{"type":"video","duration":45.2,"thumbnailUrl":"https://cdn/t.jpg","url":"https://cdn/v.mp4"}}`))
		case r.URL.Path == "/transcript":
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"jobId":"job-1"}`)) //nolint:errcheck
		case r.URL.Path == "/transcript/job-1":
			jobPolls++
			if jobPolls < 2 {
				w.Write([]byte(`{"status":"active"}`)) //nolint:errcheck
				return
			}
			w.Write([]byte(`{"status":"completed","content":" boil noodles, add garlic butter "}`)) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := supadata.NewClient("k", supadata.WithBaseURL(srv.URL), supadata.WithRateLimit(1000))
	p := NewSupadataProvider(client, supadata.WithPollInterval(time.Millisecond))

	content, err := p.Acquire(context.Background(), "https://www.tiktok.com/@noodlequeen/video/1")
	require.NoError(t, err)
	assert.Equal(t, "supadata", content.Provider)
	assert.Equal(t, model.PlatformTikTok, content.Platform)
	assert.Equal(t, model.ContentTypeVideo, content.ContentType)
	assert.Equal(t, "Garlic noodles 🍜 #recipe", content.Caption)
	assert.Equal(t, "boil noodles, add garlic butter", content.Transcript)
	assert.Equal(t, "https://cdn/v.mp4", content.VideoURL)
	require.NotNil(t, content.Engagement)
	assert.Equal(t, "noodlequeen", content.Engagement.Creator)
	require.NotNil(t, content.Engagement.DurationSeconds)
	assert.InDelta(t, 45.2, *content.Engagement.DurationSeconds, 0.001)
	assert.Equal(t, 2, jobPolls)
}

func TestSupadataProvider_TranscriptFailureDoesNotFailAcquire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metadata" {
			w.Write([]byte(`{"description":"caption","media":{"type":"video"}}`)) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := supadata.NewClient("k", supadata.WithBaseURL(srv.URL), supadata.WithRateLimit(1000))
	content, err := NewSupadataProvider(client).Acquire(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, "caption", content.Caption)
	assert.Empty(t, content.Transcript)
}

func TestSupadataProvider_CarouselSkipsTranscript(t *testing.T) {
	var transcriptCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metadata" {
			w.Write([]byte(`{"description":"salad","media":{"type":"carousel","items":[` + //nolint:errcheck
				`{"type":"image","url":"https://cdn/1.jpg"},{"type":"image","url":"https://cdn/2.jpg"}]}}`))
			return
		}
		transcriptCalls++
		w.Write([]byte(`{"content":"x"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := supadata.NewClient("k", supadata.WithBaseURL(srv.URL), supadata.WithRateLimit(1000))
	content, err := NewSupadataProvider(client).Acquire(context.Background(), "https://www.instagram.com/p/abc/")
	require.NoError(t, err)
	assert.Equal(t, model.ContentTypeSlideshow, content.ContentType)
	assert.Equal(t, []string{"https://cdn/1.jpg", "https://cdn/2.jpg"}, content.ImageURLs)
	assert.Zero(t, transcriptCalls)
}

func TestSupadataProvider_NotFoundIsNonRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := supadata.NewClient("k", supadata.WithBaseURL(srv.URL), supadata.WithRateLimit(1000))
	_, err := NewSupadataProvider(client).Acquire(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "supadata", ae.Provider)
	assert.False(t, ae.Retryable)
}

func apifyServer(t *testing.T, finalStatus string, items string) *httptest.Server {
	t.Helper()
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/runs"):
			var input map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
			assert.NotEmpty(t, input)
			w.Write([]byte(`{"data":{"id":"run-1","status":"READY","defaultDatasetId":"ds-1"}}`)) //nolint:errcheck
		case r.URL.Path == "/actor-runs/run-1":
			polls++
			status := apify.StatusRunning
			if polls > 1 {
				status = finalStatus
			}
			w.Write([]byte(`{"data":{"id":"run-1","status":"` + status + `","defaultDatasetId":"ds-1"}}`)) //nolint:errcheck
		case r.URL.Path == "/datasets/ds-1/items":
			w.Write([]byte(items)) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newApifyProvider(srvURL string) *ApifyProvider {
	client := apify.NewClient("tok", apify.WithBaseURL(srvURL), apify.WithRateLimit(1000))
	return NewApifyProvider(client, map[model.Platform]string{
		model.PlatformTikTok:    "clockworks~tiktok-scraper",
		model.PlatformInstagram: "apify~instagram-scraper",
	}, apify.WithPollInterval(time.Millisecond), apify.WithMaxWait(time.Second))
}

func TestApifyProvider_Supports(t *testing.T) {
	p := newApifyProvider("http://unused")
	assert.True(t, p.Supports("https://www.tiktok.com/@a/video/1"))
	assert.True(t, p.Supports("https://www.instagram.com/reel/x/"))
	assert.False(t, p.Supports("https://youtu.be/abc"))
}

func TestApifyProvider_AcquireNormalizesRecord(t *testing.T) {
	srv := apifyServer(t, apify.StatusSucceeded, `[{
		"text": "One-pan lemon chicken",
		"playCount": 12000,
		"diggCount": 900,
		"authorMeta": {"name": "lemonchef"},
		"videoMeta": {"duration": 58, "coverUrl": "https://cdn/cover.jpg", "downloadAddr": "https://cdn/v.mp4"}
	}]`)

	content, err := newApifyProvider(srv.URL).Acquire(context.Background(), "https://www.tiktok.com/@lemonchef/video/9")
	require.NoError(t, err)
	assert.Equal(t, "apify", content.Provider)
	assert.Equal(t, "One-pan lemon chicken", content.Caption)
	assert.Equal(t, "https://cdn/v.mp4", content.VideoURL)
	assert.Equal(t, "https://cdn/cover.jpg", content.ThumbnailURL)
	assert.Equal(t, model.ContentTypeVideo, content.ContentType)
	require.NotNil(t, content.Engagement.Views)
	assert.Equal(t, int64(12000), *content.Engagement.Views)
	assert.Equal(t, "lemonchef", content.Engagement.Creator)
	require.NotNil(t, content.Engagement.DurationSeconds)
	assert.InDelta(t, 58, *content.Engagement.DurationSeconds, 0.001)
}

func TestApifyProvider_SidecarBecomesSlideshow(t *testing.T) {
	srv := apifyServer(t, apify.StatusSucceeded, `[{
		"caption": "Summer salad",
		"type": "Sidecar",
		"images": ["https://cdn/1.jpg", "https://cdn/2.jpg", "https://cdn/3.jpg"],
		"ownerUsername": "greens"
	}]`)

	content, err := newApifyProvider(srv.URL).Acquire(context.Background(), "https://www.instagram.com/p/abc/")
	require.NoError(t, err)
	assert.Equal(t, model.ContentTypeSlideshow, content.ContentType)
	assert.Len(t, content.ImageURLs, 3)
	assert.Equal(t, "greens", content.Engagement.Creator)
}

func TestApifyProvider_TerminalFailureIsNonRetryable(t *testing.T) {
	srv := apifyServer(t, apify.StatusAborted, `[]`)

	_, err := newApifyProvider(srv.URL).Acquire(context.Background(), "https://www.tiktok.com/@a/video/1")
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.False(t, ae.Retryable)
}

func TestApifyProvider_WaitTimeoutIsRetryable(t *testing.T) {
	srv := apifyServer(t, apify.StatusRunning, `[]`)
	client := apify.NewClient("tok", apify.WithBaseURL(srv.URL), apify.WithRateLimit(1000))
	p := NewApifyProvider(client, map[model.Platform]string{model.PlatformTikTok: "actor"},
		apify.WithPollInterval(2*time.Millisecond), apify.WithMaxWait(10*time.Millisecond))

	_, err := p.Acquire(context.Background(), "https://www.tiktok.com/@a/video/1")
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.Retryable)
}

func TestApifyProvider_EmptyDatasetIsNonRetryable(t *testing.T) {
	srv := apifyServer(t, apify.StatusSucceeded, `[]`)

	_, err := newApifyProvider(srv.URL).Acquire(context.Background(), "https://www.tiktok.com/@a/video/1")
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.False(t, ae.Retryable)
	assert.Contains(t, err.Error(), "no results")
}
