package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/cellcast/internal/artifact"
	"github.com/forPelevin/cellcast/internal/ports"
	"github.com/forPelevin/cellcast/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/cellcast/internal/ports/adapters/pngdir"
	"github.com/forPelevin/cellcast/internal/usecase"
)

type Track struct {
	Name   string
	Source string
	Out    string
}

type Config struct {
	// SourceVideo is optional; when set, frames and audio are extracted from
	// it whenever they are older than the video.
	SourceVideo string
	FramesDir   string
	OutDir      string
	FrameSetOut string
	AudioOut    string
	Tracks      []Track

	Width   int
	Height  int
	FPS     float64
	ThMul   float64
	Invert  bool
	Workers int
	Compact bool

	// Force rebuilds every artifact regardless of timestamps.
	Force bool

	// SkipFrames and SkipCaptions limit a run to one side of the build.
	SkipFrames   bool
	SkipCaptions bool

	Logf func(format string, args ...any)

	FFmpegPath  string
	FFprobePath string
}

func (c Config) Validate() error {
	if c.SourceVideo != "" {
		if _, err := os.Stat(c.SourceVideo); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if c.OutDir == "" {
		return errors.New("out dir is empty")
	}
	if !c.SkipFrames {
		if c.FramesDir == "" {
			return errors.New("frames dir is empty")
		}
		if c.FrameSetOut == "" {
			return errors.New("frame set output is empty")
		}
		if c.Width <= 0 || c.Height <= 0 {
			return fmt.Errorf("grid must be positive, got %dx%d", c.Width, c.Height)
		}
		if c.FPS <= 0 {
			return fmt.Errorf("fps must be > 0")
		}
		if c.ThMul <= 0 {
			return fmt.Errorf("th_mul must be > 0")
		}
	}
	if c.SkipCaptions {
		return nil
	}
	for _, t := range c.Tracks {
		if t.Source == "" || t.Out == "" {
			return fmt.Errorf("track %q: source and output are required", t.Name)
		}
	}
	return nil
}

// Report lists the artifacts a run regenerated.
type Report struct {
	Regenerated []string
}

func Run(ctx context.Context, cfg Config) (Report, error) {
	return run(ctx, cfg, usecase.New(usecase.Deps{
		Video:  ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		Frames: pngdir.New(),
	}))
}

// ensureFunc regenerates target when it is older than sources, or always when
// force is set.
type ensureFunc func(label string, sources []string, target string, force bool, regen func() error) error

func run(ctx context.Context, cfg Config, uc usecase.Usecase) (Report, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	var rep Report

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return rep, err
	}

	ensure := func(label string, sources []string, target string, force bool, regen func() error) error {
		gen := func() error {
			logf("%s: generating %s", label, target)
			return regen()
		}
		var (
			did bool
			err error
		)
		if cfg.Force || force {
			if err = gen(); err != nil {
				err = fmt.Errorf("regenerate %s: %w", target, err)
			}
			did = err == nil
		} else {
			did, err = artifact.EnsureFresh(sources, target, gen)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if did {
			rep.Regenerated = append(rep.Regenerated, target)
		} else {
			logf("%s: ok %s", label, target)
		}
		return nil
	}

	if !cfg.SkipFrames {
		if err := buildFrames(ctx, cfg, uc, logf, ensure); err != nil {
			return rep, err
		}
	}
	if cfg.SkipCaptions {
		return rep, nil
	}

	for _, t := range cfg.Tracks {
		t := t
		err := ensure("captions "+t.Name, []string{t.Source}, t.Out, false, func() error {
			track, err := uc.CompileTrack(usecase.TrackInput{Name: t.Name, Source: t.Source, Out: t.Out}, logf)
			if err != nil {
				return err
			}
			logf("captions %s: %d cues", t.Name, len(track))
			return nil
		})
		if err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func buildFrames(ctx context.Context, cfg Config, uc usecase.Usecase, logf func(string, ...any), ensure ensureFunc) error {
	gridChanged, paramsChanged := frameSetChanged(cfg)
	if paramsChanged {
		logf("rect frames: settings changed since %s was written", cfg.FrameSetOut)
	}
	if cfg.SourceVideo != "" {
		err := ensure("frames", []string{cfg.SourceVideo}, cfg.FramesDir, gridChanged, func() error {
			if err := clearFrames(cfg.FramesDir); err != nil {
				return err
			}
			return uc.ExtractSource(ctx, cfg.SourceVideo, cfg.FramesDir, "", cfg.Width, cfg.Height, cfg.FPS)
		})
		if err != nil {
			return err
		}
		if cfg.AudioOut != "" {
			err := ensure("audio", []string{cfg.SourceVideo}, cfg.AudioOut, false, func() error {
				return uc.ExtractSource(ctx, cfg.SourceVideo, "", cfg.AudioOut, 0, 0, 0)
			})
			if err != nil {
				return err
			}
		}
	}

	return ensure("rect frames", []string{cfg.FramesDir}, cfg.FrameSetOut, paramsChanged, func() error {
		fs, err := uc.BuildFrameSet(ctx, usecase.FrameSetInput{
			FramesDir: cfg.FramesDir,
			Width:     cfg.Width,
			Height:    cfg.Height,
			FPS:       cfg.FPS,
			ThMul:     cfg.ThMul,
			Invert:    cfg.Invert,
			Workers:   cfg.Workers,
			Logf:      logf,
		})
		if err != nil {
			return err
		}
		if err := artifact.WriteFrameSet(cfg.FrameSetOut, fs, cfg.Compact); err != nil {
			return err
		}
		logf("rect frames: %d frames, avg threshold %d", len(fs.Frames), fs.Threshold)
		return nil
	})
}

// frameSetChanged compares the settings recorded in an existing frame set with
// cfg. grid reports a different size or rate, which also invalidates extracted
// frames; params reports any difference including th_mul and invert. An
// unreadable frame set counts as changed; a missing one is left to the mtime
// check.
func frameSetChanged(cfg Config) (grid, params bool) {
	if _, err := os.Stat(cfg.FrameSetOut); err != nil {
		return false, false
	}
	fs, err := artifact.LoadFrameSet(cfg.FrameSetOut)
	if err != nil {
		return false, true
	}
	grid = fs.Width != cfg.Width || fs.Height != cfg.Height || fs.FPS != cfg.FPS
	params = grid || fs.ThMul != cfg.ThMul || fs.Invert != cfg.Invert
	return grid, params
}

// clearFrames removes previously extracted PNGs so a shorter re-extraction
// does not leave stale trailing frames.
func clearFrames(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.FrameSource = (*pngdir.Adapter)(nil)
