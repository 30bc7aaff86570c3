package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractFrames writes grayscale PNG frames, scaled to width x height and
// resampled to fps, as outDir/%06d.png.
func (a *Adapter) ExtractFrames(ctx context.Context, inVideo, outDir string, width, height int, fps float64) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ffmpeg extract frames: %w", err)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, frameArgs(inVideo, outDir, width, height, fps)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract frames: %w\n%s", err, string(b))
	}
	return nil
}

func frameArgs(inVideo, outDir string, width, height int, fps float64) []string {
	vf := fmt.Sprintf("fps=%s,scale=%d:%d:flags=area,format=gray", strconv.FormatFloat(fps, 'f', -1, 64), width, height)
	return []string{
		"-y",
		"-i", inVideo,
		"-an",
		"-vf", vf,
		filepath.Join(outDir, "%06d.png"),
	}
}

// ExtractAudio re-encodes the audio track; the container follows outAudio's extension.
func (a *Adapter) ExtractAudio(ctx context.Context, inVideo, outAudio string) error {
	if err := os.MkdirAll(filepath.Dir(outAudio), 0o755); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, audioArgs(inVideo, outAudio)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func audioArgs(inVideo, outAudio string) []string {
	args := []string{"-y", "-i", inVideo, "-vn"}
	switch strings.ToLower(filepath.Ext(outAudio)) {
	case ".ogg", ".oga":
		args = append(args, "-c:a", "libvorbis", "-q:a", "5")
	case ".m4a", ".aac":
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	case ".wav":
		// whisper.cpp only reads 16 kHz mono PCM.
		args = append(args, "-c:a", "pcm_s16le", "-ar", "16000", "-ac", "1")
	default:
		args = append(args, "-c:a", "libmp3lame", "-q:a", "2")
	}
	return append(args, outAudio)
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	return parseDuration(string(b))
}

func parseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if sec <= 0 {
		return 0, fmt.Errorf("parse duration %q: not positive", s)
	}
	return time.Duration(sec * float64(time.Second)), nil
}
