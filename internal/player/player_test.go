package player

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/cellcast/internal/artifact"
	"github.com/forPelevin/cellcast/internal/domain/playback"
	"github.com/forPelevin/cellcast/internal/types"
)

func TestHalfBlocks(t *testing.T) {
	t.Parallel()
	f := types.NewBinaryFrame(2, 2)
	f.Set(0, 0, true)
	f.Set(1, 0, true)
	f.Set(1, 1, true)

	got := HalfBlocks(f, 2, 1)
	if len(got) != 1 || got[0] != "▀█" {
		t.Fatalf("unexpected rows %q", got)
	}
}

func TestHalfBlocks_ScalesKeepingAspect(t *testing.T) {
	t.Parallel()
	f := types.NewBinaryFrame(4, 2)
	for x := 0; x < 4; x++ {
		f.Set(x, 1, true)
	}

	got := HalfBlocks(f, 40, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	for i, row := range got {
		if n := len([]rune(row)); n != 8 {
			t.Fatalf("row %d: expected 8 cells wide, got %d", i, n)
		}
	}
	if got[0] != strings.Repeat(" ", 8) || got[1] != strings.Repeat("█", 8) {
		t.Fatalf("unexpected rows %q", got)
	}
}

func TestHalfBlocks_Empty(t *testing.T) {
	t.Parallel()
	if got := HalfBlocks(types.BinaryFrame{}, 10, 10); got != nil {
		t.Fatalf("expected nil, got %q", got)
	}
}

func TestRenderer_DrawsCaptions(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := &Renderer{
		Out:   &buf,
		Cols:  12,
		Rows:  4,
		Names: []string{"jp", "en"},
		Frames: types.FrameSet{Width: 2, Height: 2, Frames: [][]types.Rect{
			{{X: 0, Y: 0, W: 2, H: 2, V: types.On}},
		}},
	}
	st := playback.State{
		Frame:       0,
		FrameActive: true,
		Cues: []playback.CueState{
			{Cue: types.Cue{Start: 0, End: 1, Text: "a\nb"}, Active: true},
			{},
		},
	}
	if err := r.Render(st); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"████", "jp: a / b", "en: "} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
}

func TestRenderer_TruncatesLongCaptions(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := &Renderer{Out: &buf, Cols: 6, Rows: 2, Names: []string{"en"}, Frames: types.FrameSet{Width: 1, Height: 1, Frames: [][]types.Rect{{}}}}
	st := playback.State{Cues: []playback.CueState{{Cue: types.Cue{Text: "hello world"}, Active: true}}}
	if err := r.Render(st); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "en: he\x1b[K") {
		t.Fatalf("expected truncated caption, got %q", buf.String())
	}
}

type fakeProber struct {
	d   time.Duration
	err error
}

func (f fakeProber) ProbeDuration(context.Context, string) (time.Duration, error) {
	return f.d, f.err
}

func TestResolveDuration(t *testing.T) {
	t.Parallel()
	fs := types.FrameSet{FPS: 10, Frames: make([][]types.Rect, 25)}
	nop := func(string, ...any) {}

	tests := []struct {
		name   string
		cfg    Config
		prober Prober
		want   float64
	}{
		{"explicit", Config{Duration: 7, Audio: "a.mp3"}, fakeProber{d: time.Second}, 7},
		{"audio length", Config{Audio: "a.mp3"}, fakeProber{d: 3 * time.Second}, 3},
		{"audio unreadable", Config{Audio: "a.mp3"}, fakeProber{err: errors.New("boom")}, 2.5},
		{"no audio", Config{}, fakeProber{d: time.Second}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveDuration(context.Background(), tt.cfg, fs, tt.prober, nop); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func writeArtifacts(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	fsPath := filepath.Join(dir, "rectFrames.json")
	fs := types.FrameSet{Width: 2, Height: 2, FPS: 20, ThMul: 1, Frames: [][]types.Rect{
		{{X: 0, Y: 0, W: 1, H: 1, V: types.On}},
		{{X: 1, Y: 1, W: 1, H: 1, V: types.On}},
	}}
	if err := artifact.WriteFrameSet(fsPath, fs, false); err != nil {
		t.Fatal(err)
	}
	cuePath := filepath.Join(dir, "transcript_en.json")
	if err := artifact.WriteCues(cuePath, types.CueTrack{{Start: 0, End: 1, Text: "hello"}}); err != nil {
		t.Fatal(err)
	}
	return fsPath, cuePath
}

func TestRun_PlaysToEnd(t *testing.T) {
	t.Parallel()
	fsPath, cuePath := writeArtifacts(t)
	var buf bytes.Buffer
	var logs []string
	cfg := Config{
		FrameSet: fsPath,
		Tracks:   []Track{{Name: "en", Path: cuePath}},
		Out:      &buf,
		Cols:     10,
		Rows:     4,
		Rate:     100,
		Logf:     func(format string, args ...any) { logs = append(logs, format) },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, cfg, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "en: hello") {
		t.Fatalf("expected caption in output %q", out)
	}
	if !strings.HasSuffix(out, escShow+"\n") {
		t.Fatalf("expected cursor restored at end")
	}
	if len(logs) == 0 || !strings.HasPrefix(logs[len(logs)-1], "session %s: finished") {
		t.Fatalf("expected finished log, got %v", logs)
	}
}

func TestRun_LoadErrorsAreFatal(t *testing.T) {
	t.Parallel()
	fsPath, _ := writeArtifacts(t)
	var buf bytes.Buffer

	err := Run(context.Background(), Config{FrameSet: filepath.Join(t.TempDir(), "missing.json"), Out: &buf}, nil)
	if err == nil {
		t.Fatal("expected error for missing frame set")
	}
	err = Run(context.Background(), Config{FrameSet: fsPath, Tracks: []Track{{Name: "jp", Path: "missing.json"}}, Out: &buf}, nil)
	if err == nil {
		t.Fatal("expected error for missing cue track")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing drawn, got %q", buf.String())
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	fsPath, _ := writeArtifacts(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	if err := Run(ctx, Config{FrameSet: fsPath, Duration: 60, Out: &buf, Cols: 4, Rows: 2}, nil); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestTickInterval(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rate float64
		want time.Duration
	}{
		{25, 40 * time.Millisecond},
		{0, time.Second / 30},
		{-5, time.Second / 30},
		{math.NaN(), time.Second / 30},
		{math.Inf(1), time.Second / 30},
		{1e6, time.Millisecond},
		{5e9, time.Millisecond},
		{math.MaxFloat64, time.Millisecond},
	}
	for _, tt := range tests {
		if got := tickInterval(tt.rate); got != tt.want {
			t.Fatalf("tickInterval(%v) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestRun_HugeFPSHint(t *testing.T) {
	t.Parallel()
	fsPath := filepath.Join(t.TempDir(), "rectFrames.json")
	doc := `{"width":2,"height":2,"fps":5e9,"rect_frames":[[[0,0,1,1]]]}`
	if err := os.WriteFile(fsPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var buf bytes.Buffer
	if err := Run(ctx, Config{FrameSet: fsPath, Duration: 0.05, Out: &buf, Cols: 4, Rows: 2}, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "██  ") {
		t.Fatalf("expected the frame to be drawn, got %q", buf.String())
	}
}
