package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/forPelevin/cellcast/internal/artifact"
	"github.com/forPelevin/cellcast/internal/domain/captions"
	"github.com/forPelevin/cellcast/internal/domain/rectframes"
	"github.com/forPelevin/cellcast/internal/ports"
	"github.com/forPelevin/cellcast/internal/types"
)

type Deps struct {
	Video       ports.VideoTool
	Frames      ports.FrameSource
	Transcriber ports.Transcriber
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type FrameSetInput struct {
	FramesDir string
	Width     int
	Height    int
	FPS       float64
	ThMul     float64
	Invert    bool
	Workers   int
	Logf      func(format string, args ...any)
}

type frameJob struct {
	index int
	path  string
}

type frameResult struct {
	index int
	rects []types.Rect
	th    float64
	err   error
}

// BuildFrameSet decodes, binarizes and encodes every frame of in.FramesDir on
// a worker pool. All frames are processed even when some fail; the returned
// error then joins every frame error in frame order.
func (u Usecase) BuildFrameSet(ctx context.Context, in FrameSetInput) (types.FrameSet, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	files, err := u.d.Frames.List(ctx, in.FramesDir)
	if err != nil {
		return types.FrameSet{}, err
	}
	logf("frames: %d (%dx%d @ %gfps, invert=%v, th_mul=%g)", len(files), in.Width, in.Height, in.FPS, in.Invert, in.ThMul)

	workers := in.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(files))

	jobs := make(chan frameJob, workers*2)
	results := make(chan frameResult, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- u.encodeOne(ctx, j, in)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, p := range files {
			select {
			case jobs <- frameJob{index: i, path: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	frames := make([][]types.Rect, len(files))
	var (
		thSum float64
		errs  []*rectframes.FrameError
		done  int
	)
	for res := range results {
		done++
		if done%200 == 0 {
			logf("  encoded %d/%d", done, len(files))
		}
		if res.err != nil {
			var fe *rectframes.FrameError
			if !errors.As(res.err, &fe) {
				fe = &rectframes.FrameError{Index: res.index, Err: res.err}
			}
			errs = append(errs, fe)
			continue
		}
		frames[res.index] = res.rects
		thSum += res.th
	}
	if err := ctx.Err(); err != nil {
		return types.FrameSet{}, err
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Index < errs[j].Index })
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return types.FrameSet{}, fmt.Errorf("%d of %d frames failed: %w", len(errs), len(files), errors.Join(joined...))
	}

	return types.FrameSet{
		Width:     in.Width,
		Height:    in.Height,
		FPS:       in.FPS,
		Threshold: rectframes.AverageThreshold(thSum, len(files)),
		ThMul:     in.ThMul,
		Invert:    in.Invert,
		Frames:    frames,
	}, nil
}

func (u Usecase) encodeOne(ctx context.Context, j frameJob, in FrameSetInput) frameResult {
	if err := ctx.Err(); err != nil {
		return frameResult{index: j.index, err: err}
	}
	gray, err := u.d.Frames.Load(j.path)
	if err != nil {
		return frameResult{index: j.index, err: err}
	}
	bin, th := rectframes.Binarize(gray, in.ThMul, in.Invert)
	rects, err := rectframes.EncodeFrame(j.index, bin, in.Width, in.Height)
	if err != nil {
		return frameResult{index: j.index, err: err}
	}
	return frameResult{index: j.index, rects: rects, th: th}
}

type TrackInput struct {
	Name   string
	Source string
	Out    string
}

// CompileTrack compiles one caption source into its cue file. A track with
// no usable cues is still written, as an empty list.
func (u Usecase) CompileTrack(tr TrackInput, logf func(format string, args ...any)) (types.CueTrack, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	b, err := os.ReadFile(tr.Source)
	if err != nil {
		return nil, fmt.Errorf("read captions %s: %w", tr.Name, err)
	}
	trackLogf := func(format string, args ...any) {
		logf("[%s] "+format, append([]any{tr.Name}, args...)...)
	}
	track := captions.CompileText(tr.Source, string(b), trackLogf)
	if len(track) == 0 {
		logf("[%s] no usable cues in %s", tr.Name, tr.Source)
	}
	if err := artifact.WriteCues(tr.Out, track); err != nil {
		return nil, fmt.Errorf("write captions %s: %w", tr.Name, err)
	}
	return track, nil
}

// ExtractSource pulls frames and audio out of a source video. Either output
// may be skipped by passing an empty path.
func (u Usecase) ExtractSource(ctx context.Context, video, framesDir, audioOut string, width, height int, fps float64) error {
	if framesDir != "" {
		if err := u.d.Video.ExtractFrames(ctx, video, framesDir, width, height, fps); err != nil {
			return err
		}
	}
	if audioOut != "" {
		if err := u.d.Video.ExtractAudio(ctx, video, audioOut); err != nil {
			return err
		}
	}
	return nil
}

type TranscribeInput struct {
	// Media is any file ffmpeg can pull an audio stream from.
	Media string
	Lang  string

	// Out is the caption source to draft, usually a track's SRT.
	Out   string
	Force bool
}

// Transcribe drafts a caption source from the speech in Media. An existing
// Out is kept unless Force is set, since drafts are usually hand-corrected.
func (u Usecase) Transcribe(ctx context.Context, in TranscribeInput) error {
	if u.d.Transcriber == nil || u.d.Video == nil {
		return errors.New("transcribe: video tool and transcriber are required")
	}
	if !in.Force {
		if _, err := os.Stat(in.Out); err == nil {
			return fmt.Errorf("transcribe: %s exists (use --force to replace it)", in.Out)
		}
	}

	tmp, err := os.MkdirTemp("", "cellcast-transcribe-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	wav := filepath.Join(tmp, "speech.wav")
	if err := u.d.Video.ExtractAudio(ctx, in.Media, wav); err != nil {
		return err
	}
	srt, err := u.d.Transcriber.Transcribe(ctx, wav, filepath.Join(tmp, "draft"), in.Lang)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(srt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(in.Out), 0o755); err != nil {
		return err
	}
	return artifact.WriteFileAtomic(in.Out, b, 0o644)
}
