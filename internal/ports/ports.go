package ports

import (
	"context"
	"image"
	"time"
)

type VideoTool interface {
	ExtractFrames(ctx context.Context, inVideo, outDir string, width, height int, fps float64) error
	ExtractAudio(ctx context.Context, inVideo, outAudio string) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// FrameSource lists and decodes the grayscale frames of one video, in
// playback order.
type FrameSource interface {
	List(ctx context.Context, dir string) ([]string, error)
	Load(path string) (*image.Gray, error)
}

// Transcriber drafts a caption source from speech. It writes outPrefix+".srt"
// and returns that path.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, outPrefix, lang string) (string, error)
}
