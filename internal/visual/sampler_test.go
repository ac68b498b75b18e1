package visual

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	duration    float64
	downloadErr error
	durationErr error
	// frameSize returns the size of the frame at ts; zero means error.
	frameSize func(ts float64) int
	requested []float64
}

func (f *fakeMedia) Download(_ context.Context, _, dir string) (string, error) {
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	return dir + "/video.mp4", nil
}

func (f *fakeMedia) Duration(context.Context, string) (float64, error) {
	return f.duration, f.durationErr
}

func (f *fakeMedia) Frame(_ context.Context, _ string, at float64) ([]byte, error) {
	f.requested = append(f.requested, at)
	n := 4096
	if f.frameSize != nil {
		n = f.frameSize(at)
	}
	if n == 0 {
		return nil, errors.New("ffmpeg failed")
	}
	return append([]byte{0xFF, 0xD8, 0xFF}, bytes.Repeat([]byte{0}, n-3)...), nil
}

func TestSampler_Sample(t *testing.T) {
	media := &fakeMedia{duration: 100}
	s := NewSampler(media, Config{WorkDir: t.TempDir()})

	frames, err := s.Sample(context.Background(), "https://www.tiktok.com/@chef/video/1")
	require.NoError(t, err)
	require.Len(t, frames, 8)
	assert.Equal(t, media.requested, Timestamps(100, 8))

	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, "image/jpeg", f.Image.MIMEType)
		assert.NotEmpty(t, f.Image.Data)
	}
	assert.Equal(t, StageIntro, frames[0].Stage)
	assert.Equal(t, StageOutro, frames[7].Stage)
}

func TestSampler_DiscardsSmallAndFailedFrames(t *testing.T) {
	media := &fakeMedia{
		duration: 30,
		frameSize: func(ts float64) int {
			switch {
			case ts < 2:
				return 100 // black frame
			case ts > 25:
				return 0 // extraction failure
			}
			return 4096
		},
	}
	s := NewSampler(media, Config{WorkDir: t.TempDir()})

	frames, err := s.Sample(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	require.Len(t, frames, 4)
	assert.InDelta(t, 7.5, frames[0].Timestamp, 1e-9)
	assert.Equal(t, 0, frames[0].Index)
	assert.Equal(t, 3, frames[3].Index)
}

func TestSampler_NoUsableFrames(t *testing.T) {
	media := &fakeMedia{duration: 30, frameSize: func(float64) int { return 10 }}
	s := NewSampler(media, Config{WorkDir: t.TempDir()})

	_, err := s.Sample(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)

	var fe *FrameExtractionError
	require.ErrorAs(t, err, &fe)
	assert.False(t, fe.Retryable)
	assert.Equal(t, "https://youtu.be/abc", fe.VideoURL)
	assert.False(t, IsRetryable(err))
}

func TestSampler_DownloadFailureIsRetryable(t *testing.T) {
	media := &fakeMedia{downloadErr: errors.New("HTTP Error 503")}
	s := NewSampler(media, Config{WorkDir: t.TempDir()})

	_, err := s.Sample(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "HTTP Error 503")
}

func TestImageFrames(t *testing.T) {
	urls := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}

	frames := ImageFrames(urls, 3)
	require.Len(t, frames, 3)
	assert.Equal(t, "a.jpg", frames[0].Image.URL)
	assert.Equal(t, 2, frames[2].Index)
	assert.Equal(t, StageIntro, frames[0].Stage)
	assert.Equal(t, StageOutro, frames[2].Stage)

	assert.Len(t, ImageFrames(urls, 0), 4)
}
