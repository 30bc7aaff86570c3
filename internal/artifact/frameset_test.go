package artifact

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/cellcast/internal/types"
)

func testFrameSet() types.FrameSet {
	return types.FrameSet{
		Width:     4,
		Height:    3,
		FPS:       30,
		Threshold: 120,
		ThMul:     0.95,
		Frames: [][]types.Rect{
			{{X: 0, Y: 0, W: 4, H: 3, V: types.On}},
			{},
			{{X: 1, Y: 1, W: 1, H: 1, V: types.On}, {X: 3, Y: 0, W: 1, H: 2, V: types.On}},
		},
	}
}

func TestFrameSet_WriteThenLoad(t *testing.T) {
	for _, compact := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "rectFrames.json")
		want := testFrameSet()
		if err := WriteFrameSet(path, want, compact); err != nil {
			t.Fatalf("write (compact=%v): %v", compact, err)
		}
		got, err := LoadFrameSet(path)
		if err != nil {
			t.Fatalf("load (compact=%v): %v", compact, err)
		}
		if got.Width != 4 || got.Height != 3 || got.FPS != 30 || got.Threshold != 120 {
			t.Fatalf("metadata mismatch: %+v", got)
		}
		if len(got.Frames) != 3 || len(got.Frames[1]) != 0 || len(got.Frames[2]) != 2 {
			t.Fatalf("frames mismatch: %+v", got.Frames)
		}
		if got.Frames[2][1] != want.Frames[2][1] {
			t.Fatalf("rect mismatch: %+v", got.Frames[2][1])
		}
	}
}

func TestEncodeFrameSet_EmptyFramesAreLists(t *testing.T) {
	var buf bytes.Buffer
	fs := types.FrameSet{Width: 1, Height: 1, Frames: [][]types.Rect{nil}}
	if err := EncodeFrameSet(&buf, fs, true); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	if !strings.Contains(s, `"rect_frames":[[]]`) || !strings.Contains(s, `"fps":null`) {
		t.Fatalf("unexpected document: %s", s)
	}
}

func TestDecodeFrameSet_AcceptsBothRectShapes(t *testing.T) {
	doc := `{"width":3,"height":2,"frames":[[[0,0,1,1],[1,0,2,1,1],{"x":0,"y":1,"w":3,"h":1},{"x":2,"y":1,"w":1,"h":1,"v":0},[0,1,1,1,0]]]}`
	fs, err := DecodeFrameSet(strings.NewReader(doc), "inline")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fs.FPS != 0 {
		t.Fatalf("expected absent fps, got %v", fs.FPS)
	}
	if len(fs.Frames) != 1 || len(fs.Frames[0]) != 3 {
		t.Fatalf("expected 3 on rects after dropping off rects, got %+v", fs.Frames)
	}
	for _, r := range fs.Frames[0] {
		if r.V != types.On {
			t.Fatalf("expected defaulted v=1, got %+v", r)
		}
	}
}

func TestDecodeFrameSet_Errors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantField string
	}{
		{"truncated", `{"width":3,"height":`, ""},
		{"missing width", `{"height":2,"rect_frames":[]}`, "width"},
		{"zero height", `{"width":2,"height":0,"rect_frames":[]}`, "height"},
		{"missing frames", `{"width":2,"height":2}`, "rect_frames"},
		{"count mismatch", `{"width":2,"height":2,"frames_count":2,"rect_frames":[[]]}`, "frames_count"},
		{"short tuple", `{"width":2,"height":2,"rect_frames":[[[0,0,1]]]}`, "rect_frames[0][0]"},
		{"out of bounds", `{"width":2,"height":2,"rect_frames":[[],[[1,1,2,1]]]}`, "rect_frames[1][0]"},
		{"zero size", `{"width":2,"height":2,"rect_frames":[[{"x":0,"y":0,"w":0,"h":1}]]}`, "rect_frames[0][0]"},
		{"record missing h", `{"width":2,"height":2,"frames":[[{"x":0,"y":0,"w":1}]]}`, "frames[0][0]"},
		{"bad v", `{"width":2,"height":2,"rect_frames":[[[0,0,1,1,3]]]}`, "rect_frames[0][0]"},
		{"scalar rect", `{"width":2,"height":2,"rect_frames":[[7]]}`, "rect_frames[0][0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrameSet(strings.NewReader(tt.doc), "rectFrames.json")
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
			if le.Artifact != "rectFrames.json" || le.Field != tt.wantField {
				t.Fatalf("unexpected error location: artifact=%q field=%q (%v)", le.Artifact, le.Field, err)
			}
		})
	}
}

func TestLoadFrameSet_MissingFile(t *testing.T) {
	_, err := LoadFrameSet(filepath.Join(t.TempDir(), "nope.json"))
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
}
