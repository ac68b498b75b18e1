package visual

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-cli/internal/config"
)

// MediaTool downloads videos and pulls still frames out of them.
type MediaTool interface {
	// Download saves the media behind videoURL into dir and returns the file path.
	Download(ctx context.Context, videoURL, dir string) (string, error)
	// Duration returns the length of a local video in seconds.
	Duration(ctx context.Context, path string) (float64, error)
	// Frame returns one JPEG frame at the given offset in seconds.
	Frame(ctx context.Context, path string, at float64) ([]byte, error)
}

// ExecMediaTool shells out to yt-dlp, ffprobe and ffmpeg. Every invocation
// runs under its own timeout and success is judged by exit code.
type ExecMediaTool struct {
	ytdlpPath       string
	ffmpegPath      string
	ffprobePath     string
	downloadTimeout time.Duration
	frameTimeout    time.Duration
}

// NewExecMediaTool creates an ExecMediaTool. Empty paths fall back to the
// binaries on PATH; zero timeouts take 5 minutes for downloads and 30
// seconds for probes and frames.
func NewExecMediaTool(cfg config.VisualConfig) *ExecMediaTool {
	t := &ExecMediaTool{
		ytdlpPath:       cfg.YtDlpPath,
		ffmpegPath:      cfg.FFmpegPath,
		ffprobePath:     cfg.FFprobePath,
		downloadTimeout: time.Duration(cfg.DownloadTimeout) * time.Second,
		frameTimeout:    time.Duration(cfg.FrameTimeout) * time.Second,
	}
	if t.ytdlpPath == "" {
		t.ytdlpPath = "yt-dlp"
	}
	if t.ffmpegPath == "" {
		t.ffmpegPath = "ffmpeg"
	}
	if t.ffprobePath == "" {
		t.ffprobePath = "ffprobe"
	}
	if t.downloadTimeout <= 0 {
		t.downloadTimeout = 5 * time.Minute
	}
	if t.frameTimeout <= 0 {
		t.frameTimeout = 30 * time.Second
	}
	return t
}

// Download runs yt-dlp, which resolves social post URLs as well as direct
// media links.
func (t *ExecMediaTool) Download(ctx context.Context, videoURL, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.downloadTimeout)
	defer cancel()

	template := filepath.Join(dir, "video.%(ext)s")
	if _, err := t.run(ctx, t.ytdlpPath,
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"--no-warnings",
		"-f", "mp4/bestvideo[ext=mp4]+bestaudio/best",
		"-o", template,
		videoURL,
	); err != nil {
		return "", eris.Wrapf(err, "visual: download %s", videoURL)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "video.*"))
	if err != nil {
		return "", eris.Wrap(err, "visual: locate download")
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") {
			continue
		}
		return m, nil
	}
	return "", eris.Errorf("visual: download of %s produced no file", videoURL)
}

// Duration runs ffprobe and parses the container duration.
func (t *ExecMediaTool) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.frameTimeout)
	defer cancel()

	out, err := t.run(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "visual: probe %s", path)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "visual: parse duration %q", strings.TrimSpace(string(out)))
	}
	return d, nil
}

// Frame seeks to at and writes a single JPEG to stdout.
func (t *ExecMediaTool) Frame(ctx context.Context, path string, at float64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.frameTimeout)
	defer cancel()

	out, err := t.run(ctx, t.ffmpegPath,
		"-v", "error",
		"-ss", strconv.FormatFloat(at, 'f', 1, 64),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	if err != nil {
		return nil, eris.Wrapf(err, "visual: frame at %.1fs", at)
	}
	return out, nil
}

func (t *ExecMediaTool) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "%s timed out", filepath.Base(bin))
		}
		return nil, eris.Wrapf(err, "%s failed: %s", filepath.Base(bin), strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// tempDir creates a scratch directory for one extraction.
func tempDir(base string) (string, func(), error) {
	dir, err := os.MkdirTemp(base, "recipe-frames-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "visual: create work dir")
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
