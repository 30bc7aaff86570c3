package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/forPelevin/cellcast/internal/artifact"
	"github.com/forPelevin/cellcast/internal/domain/playback"
	"github.com/forPelevin/cellcast/internal/types"
)

// Prober measures media duration, usually of the audio artifact.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

type Track struct {
	Name string
	Path string
}

type Config struct {
	FrameSet string
	Tracks   []Track

	// Audio length sets the playback duration unless Duration is set.
	Audio    string
	Duration float64

	// From starts playback at this position in seconds.
	From float64

	// Rate is the tick rate in Hz; the frame set fps when zero.
	Rate float64

	Out  io.Writer
	Cols int
	Rows int
	Logf func(format string, args ...any)
}

func (c Config) Validate() error {
	if c.FrameSet == "" {
		return errors.New("frame set path is empty")
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must be >= 0, got %v", c.Duration)
	}
	if c.From < 0 {
		return fmt.Errorf("start position must be >= 0, got %v", c.From)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must be >= 0, got %v", c.Rate)
	}
	return nil
}

// Run loads the artifacts and plays them on cfg.Out until the end of the
// media or until ctx is cancelled. Artifact load errors are returned before
// anything is drawn.
func Run(ctx context.Context, cfg Config, prober Prober) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	fs, err := artifact.LoadFrameSet(cfg.FrameSet)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(cfg.Tracks))
	tracks := make([]types.CueTrack, 0, len(cfg.Tracks))
	for _, t := range cfg.Tracks {
		track, skipped, err := artifact.LoadCues(t.Path)
		if err != nil {
			return err
		}
		if skipped > 0 {
			logf("[%s] skipped %d unusable cues", t.Name, skipped)
		}
		names = append(names, t.Name)
		tracks = append(tracks, track)
	}

	duration := resolveDuration(ctx, cfg, fs, prober, logf)
	engine := playback.ForFrameSet(fs, duration, tracks...)

	cols, rows := screenSize(out, cfg.Cols, cfg.Rows)
	rate := cfg.Rate
	if rate <= 0 {
		rate = fs.FPS
	}

	session := uuid.NewString()
	logf("session %s: %d frames, %d tracks, %.2fs at %dx%d", session, engine.Frames(), engine.Tracks(), duration, cols, rows)

	r := &Renderer{Out: out, Cols: cols, Rows: rows, Names: names, Frames: fs}
	if _, err := io.WriteString(out, escHide+escClear); err != nil {
		return err
	}
	defer io.WriteString(out, escShow+"\n")

	ticker := time.NewTicker(tickInterval(rate))
	defer ticker.Stop()

	err = playback.Loop(ctx, engine, playback.NewWallClock(cfg.From), ticker.C, duration, r.Render)
	if errors.Is(err, context.Canceled) {
		logf("session %s: stopped", session)
		return nil
	}
	if err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	logf("session %s: finished", session)
	return nil
}

const (
	defaultRate = 30
	minTick     = time.Millisecond
)

// tickInterval converts a redraw rate to a ticker period. Rates that are not
// positive and finite use the default; very high rates are capped at minTick.
func tickInterval(rate float64) time.Duration {
	if !(rate > 0) || math.IsInf(rate, 1) {
		rate = defaultRate
	}
	d := time.Duration(float64(time.Second) / rate)
	if d < minTick {
		return minTick
	}
	return d
}

// resolveDuration prefers an explicit duration, then the measured audio
// length, then frames/fps.
func resolveDuration(ctx context.Context, cfg Config, fs types.FrameSet, prober Prober, logf func(string, ...any)) float64 {
	if cfg.Duration > 0 {
		return cfg.Duration
	}
	if cfg.Audio != "" && prober != nil {
		d, err := prober.ProbeDuration(ctx, cfg.Audio)
		if err == nil && d > 0 {
			return d.Seconds()
		}
		logf("audio duration %s: %v; falling back to frame count", cfg.Audio, err)
	}
	if fs.FPS > 0 {
		return float64(len(fs.Frames)) / fs.FPS
	}
	return 0
}

func screenSize(out io.Writer, cols, rows int) (int, int) {
	if cols > 0 && rows > 0 {
		return cols, rows
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, h, err := term.GetSize(int(f.Fd())); err == nil {
			if cols <= 0 {
				cols = w
			}
			if rows <= 0 {
				rows = h
			}
		}
	}
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	return cols, rows
}
