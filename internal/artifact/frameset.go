package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/forPelevin/cellcast/internal/types"
)

var (
	ErrMissing    = errors.New("missing required field")
	ErrOutOfRange = errors.New("out of range")
)

type frameSetFile struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	FPS         *float64 `json:"fps"`
	Threshold   int      `json:"threshold"`
	ThMul       float64  `json:"th_mul"`
	Invert      bool     `json:"invert"`
	FramesCount int      `json:"frames_count"`
	RectFrames  [][]any  `json:"rect_frames"`
}

// EncodeFrameSet writes fs as JSON. Rects are records unless compact is set,
// in which case they are [x,y,w,h,v] tuples.
func EncodeFrameSet(w io.Writer, fs types.FrameSet, compact bool) error {
	out := frameSetFile{
		Width:       fs.Width,
		Height:      fs.Height,
		Threshold:   fs.Threshold,
		ThMul:       fs.ThMul,
		Invert:      fs.Invert,
		FramesCount: len(fs.Frames),
		RectFrames:  make([][]any, len(fs.Frames)),
	}
	if fs.FPS > 0 {
		fps := fs.FPS
		out.FPS = &fps
	}
	for i, frame := range fs.Frames {
		row := make([]any, len(frame))
		for j, r := range frame {
			if compact {
				row[j] = [5]int{r.X, r.Y, r.W, r.H, int(r.V)}
			} else {
				row[j] = r
			}
		}
		out.RectFrames[i] = row
	}
	return json.NewEncoder(w).Encode(out)
}

// WriteFrameSet writes fs to path atomically.
func WriteFrameSet(path string, fs types.FrameSet, compact bool) error {
	var buf bytes.Buffer
	if err := EncodeFrameSet(&buf, fs, compact); err != nil {
		return fmt.Errorf("encode frame set: %w", err)
	}
	return WriteFileAtomic(path, buf.Bytes(), 0o644)
}

type frameSetWire struct {
	Width       *int                `json:"width"`
	Height      *int                `json:"height"`
	FPS         *float64            `json:"fps"`
	Threshold   int                 `json:"threshold"`
	ThMul       float64             `json:"th_mul"`
	Invert      bool                `json:"invert"`
	FramesCount *int                `json:"frames_count"`
	RectFrames  [][]json.RawMessage `json:"rect_frames"`
	Frames      [][]json.RawMessage `json:"frames"`
}

// DecodeFrameSet parses a frame set document. Every rectangle is normalized
// and validated here; v=0 rectangles are dropped since off is the background.
// name labels errors.
func DecodeFrameSet(r io.Reader, name string) (types.FrameSet, error) {
	var wire frameSetWire
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return types.FrameSet{}, &LoadError{Artifact: name, Err: fmt.Errorf("decode: %w", err)}
	}

	fail := func(field string, err error) (types.FrameSet, error) {
		return types.FrameSet{}, &LoadError{Artifact: name, Field: field, Err: err}
	}
	if wire.Width == nil {
		return fail("width", ErrMissing)
	}
	if wire.Height == nil {
		return fail("height", ErrMissing)
	}
	if *wire.Width <= 0 {
		return fail("width", fmt.Errorf("%w: %d", ErrOutOfRange, *wire.Width))
	}
	if *wire.Height <= 0 {
		return fail("height", fmt.Errorf("%w: %d", ErrOutOfRange, *wire.Height))
	}

	frames, field := wire.RectFrames, "rect_frames"
	if frames == nil {
		frames, field = wire.Frames, "frames"
	}
	if frames == nil {
		return fail("rect_frames", ErrMissing)
	}
	if wire.FramesCount != nil && *wire.FramesCount != len(frames) {
		return fail("frames_count", fmt.Errorf("declares %d frames, found %d", *wire.FramesCount, len(frames)))
	}

	fs := types.FrameSet{
		Width:     *wire.Width,
		Height:    *wire.Height,
		Threshold: wire.Threshold,
		ThMul:     wire.ThMul,
		Invert:    wire.Invert,
		Frames:    make([][]types.Rect, len(frames)),
	}
	if wire.FPS != nil {
		fs.FPS = *wire.FPS
	}
	for i, frame := range frames {
		rects := make([]types.Rect, 0, len(frame))
		for j, raw := range frame {
			rect, err := parseRect(raw, fs.Width, fs.Height)
			if err != nil {
				return fail(fmt.Sprintf("%s[%d][%d]", field, i, j), err)
			}
			if rect.V == types.On {
				rects = append(rects, rect)
			}
		}
		fs.Frames[i] = rects
	}
	return fs, nil
}

// LoadFrameSet reads and decodes the frame set at path.
func LoadFrameSet(path string) (types.FrameSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.FrameSet{}, &LoadError{Artifact: path, Err: err}
	}
	defer f.Close()
	return DecodeFrameSet(f, path)
}

type rectRecord struct {
	X *int   `json:"x"`
	Y *int   `json:"y"`
	W *int   `json:"w"`
	H *int   `json:"h"`
	V *uint8 `json:"v"`
}

func parseRect(raw json.RawMessage, width, height int) (types.Rect, error) {
	raw = bytes.TrimSpace(raw)
	var r types.Rect
	switch {
	case len(raw) > 0 && raw[0] == '[':
		var tup []int
		if err := json.Unmarshal(raw, &tup); err != nil {
			return r, fmt.Errorf("tuple: %w", err)
		}
		if len(tup) != 4 && len(tup) != 5 {
			return r, fmt.Errorf("tuple has %d elements, want 4 or 5", len(tup))
		}
		r = types.Rect{X: tup[0], Y: tup[1], W: tup[2], H: tup[3], V: types.On}
		if len(tup) == 5 {
			if tup[4] != 0 && tup[4] != 1 {
				return r, fmt.Errorf("v: %w: %d", ErrOutOfRange, tup[4])
			}
			r.V = uint8(tup[4])
		}
	case len(raw) > 0 && raw[0] == '{':
		var rec rectRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return r, fmt.Errorf("record: %w", err)
		}
		for _, f := range []struct {
			name string
			v    *int
		}{{"x", rec.X}, {"y", rec.Y}, {"w", rec.W}, {"h", rec.H}} {
			if f.v == nil {
				return r, fmt.Errorf("%s: %w", f.name, ErrMissing)
			}
		}
		r = types.Rect{X: *rec.X, Y: *rec.Y, W: *rec.W, H: *rec.H, V: types.On}
		if rec.V != nil {
			if *rec.V > 1 {
				return r, fmt.Errorf("v: %w: %d", ErrOutOfRange, *rec.V)
			}
			r.V = *rec.V
		}
	default:
		return r, fmt.Errorf("rect must be a tuple or a record, got %s", string(raw))
	}

	if r.W < 1 || r.H < 1 {
		return r, fmt.Errorf("%w: size %dx%d", ErrOutOfRange, r.W, r.H)
	}
	if r.X < 0 || r.Y < 0 || r.X+r.W > width || r.Y+r.H > height {
		return r, fmt.Errorf("%w: %dx%d at (%d,%d) outside %dx%d grid", ErrOutOfRange, r.W, r.H, r.X, r.Y, width, height)
	}
	return r, nil
}
