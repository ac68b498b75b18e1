package visual

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-cli/pkg/gemini"
)

// Frame is one image handed to the vision model, either a still pulled from
// a video or one of a post's images.
type Frame struct {
	Index     int
	Timestamp float64
	Stage     Stage
	Image     gemini.Image
}

// Sampler turns a video into a small set of representative frames.
type Sampler struct {
	media MediaTool
	cfg   Config
}

// NewSampler creates a Sampler.
func NewSampler(media MediaTool, cfg Config) *Sampler {
	return &Sampler{media: media, cfg: cfg.withDefaults()}
}

// Sample downloads the video, picks timestamps across its narrative zones
// and extracts one frame per timestamp. Frames smaller than MinFrameBytes
// are dropped as black or corrupt. A video with no usable frame returns a
// non-retryable FrameExtractionError.
func (s *Sampler) Sample(ctx context.Context, videoURL string) ([]Frame, error) {
	dir, cleanup, err := tempDir(s.cfg.WorkDir)
	if err != nil {
		return nil, &FrameExtractionError{VideoURL: videoURL, Retryable: true, Cause: err}
	}
	defer cleanup()

	path, err := s.media.Download(ctx, videoURL, dir)
	if err != nil {
		return nil, &FrameExtractionError{VideoURL: videoURL, Retryable: true, Cause: err}
	}

	duration, err := s.media.Duration(ctx, path)
	if err != nil {
		return nil, &FrameExtractionError{VideoURL: videoURL, Retryable: false, Cause: err}
	}

	timestamps := Timestamps(duration, s.cfg.MaxFrames)
	zap.L().Debug("visual: sampling frames",
		zap.String("url", videoURL),
		zap.Float64("duration_secs", duration),
		zap.Float64s("timestamps", timestamps),
	)

	frames := make([]Frame, 0, len(timestamps))
	for _, ts := range timestamps {
		data, err := s.media.Frame(ctx, path, ts)
		if err != nil {
			zap.L().Warn("visual: frame extraction failed",
				zap.Float64("timestamp", ts),
				zap.Error(err),
			)
			continue
		}
		if len(data) < s.cfg.MinFrameBytes {
			zap.L().Debug("visual: discarding undersized frame",
				zap.Float64("timestamp", ts),
				zap.Int("bytes", len(data)),
			)
			continue
		}
		frames = append(frames, Frame{
			Index:     len(frames),
			Timestamp: ts,
			Stage:     StageAt(ts, duration),
			Image:     gemini.Image{Data: data, MIMEType: http.DetectContentType(data)},
		})
	}

	if len(frames) == 0 {
		return nil, &FrameExtractionError{
			VideoURL:  videoURL,
			Retryable: false,
			Cause:     eris.Errorf("no usable frame out of %d sampled", len(timestamps)),
		}
	}
	return frames, nil
}

// ImageFrames wraps a post's image URLs as frames, capped at maxFrames.
func ImageFrames(urls []string, maxFrames int) []Frame {
	if maxFrames > 0 && len(urls) > maxFrames {
		urls = urls[:maxFrames]
	}
	frames := make([]Frame, 0, len(urls))
	for i, u := range urls {
		frames = append(frames, Frame{
			Index: i,
			Stage: stageForPosition(i, len(urls)),
			Image: gemini.Image{URL: u},
		})
	}
	return frames
}
