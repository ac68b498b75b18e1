package visual

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recipe-cli/internal/config"
)

// writeScript drops an executable shell script standing in for a media binary.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestNewExecMediaTool_Defaults(t *testing.T) {
	tool := NewExecMediaTool(config.VisualConfig{})
	assert.Equal(t, "yt-dlp", tool.ytdlpPath)
	assert.Equal(t, "ffmpeg", tool.ffmpegPath)
	assert.Equal(t, "ffprobe", tool.ffprobePath)
	assert.Equal(t, 5*time.Minute, tool.downloadTimeout)
	assert.Equal(t, 30*time.Second, tool.frameTimeout)

	tool = NewExecMediaTool(config.VisualConfig{FFmpegPath: "/opt/ffmpeg", FrameTimeout: 5})
	assert.Equal(t, "/opt/ffmpeg", tool.ffmpegPath)
	assert.Equal(t, 5*time.Second, tool.frameTimeout)
}

func TestExecMediaTool_Duration(t *testing.T) {
	bin := t.TempDir()
	tool := NewExecMediaTool(config.VisualConfig{
		FFprobePath: writeScript(t, bin, "ffprobe", `echo "42.480000"`),
	})

	d, err := tool.Duration(context.Background(), "/tmp/video.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 42.48, d, 1e-9)
}

func TestExecMediaTool_DurationUnparseable(t *testing.T) {
	bin := t.TempDir()
	tool := NewExecMediaTool(config.VisualConfig{
		FFprobePath: writeScript(t, bin, "ffprobe", `echo "N/A"`),
	})

	_, err := tool.Duration(context.Background(), "/tmp/video.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse duration")
}

func TestExecMediaTool_FrameReturnsStdout(t *testing.T) {
	bin := t.TempDir()
	tool := NewExecMediaTool(config.VisualConfig{
		FFmpegPath: writeScript(t, bin, "ffmpeg", `printf 'JPEGDATA'`),
	})

	data, err := tool.Frame(context.Background(), "/tmp/video.mp4", 3.25)
	require.NoError(t, err)
	assert.Equal(t, []byte("JPEGDATA"), data)
}

func TestExecMediaTool_NonZeroExit(t *testing.T) {
	bin := t.TempDir()
	tool := NewExecMediaTool(config.VisualConfig{
		FFmpegPath: writeScript(t, bin, "ffmpeg", `echo "Invalid data found" >&2; exit 1`),
	})

	_, err := tool.Frame(context.Background(), "/tmp/video.mp4", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestExecMediaTool_Download(t *testing.T) {
	bin := t.TempDir()
	// Writes to the path after -o with %(ext)s replaced, like yt-dlp.
	script := `while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out=$(echo "$2" | sed 's/%(ext)s/mp4/'); fi
  shift
done
printf 'video' > "$out"`
	tool := NewExecMediaTool(config.VisualConfig{YtDlpPath: writeScript(t, bin, "yt-dlp", script)})

	dir := t.TempDir()
	path, err := tool.Download(context.Background(), "https://www.tiktok.com/@chef/video/1", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video.mp4"), path)
}

func TestExecMediaTool_DownloadNoFile(t *testing.T) {
	bin := t.TempDir()
	tool := NewExecMediaTool(config.VisualConfig{YtDlpPath: writeScript(t, bin, "yt-dlp", `exit 0`)})

	_, err := tool.Download(context.Background(), "https://example.com/v", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no file")
}

func TestExecMediaTool_Timeout(t *testing.T) {
	bin := t.TempDir()
	tool := NewExecMediaTool(config.VisualConfig{
		FFprobePath: writeScript(t, bin, "ffprobe", `exec sleep 5`),
	})
	tool.frameTimeout = 50 * time.Millisecond

	_, err := tool.Duration(context.Background(), "/tmp/video.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
