package rectframes

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/forPelevin/cellcast/internal/types"
)

func frameFromRows(rows ...string) types.BinaryFrame {
	f := types.NewBinaryFrame(len(rows[0]), len(rows))
	for y, r := range rows {
		for x, c := range r {
			f.Set(x, y, c == '#')
		}
	}
	return f
}

func randomFrame(rng *rand.Rand, w, h int, density float64) types.BinaryFrame {
	f := types.NewBinaryFrame(w, h)
	for i := range f.Cells {
		f.Cells[i] = rng.Float64() < density
	}
	return f
}

func sameCells(a, b types.BinaryFrame) bool {
	if a.Width != b.Width || a.Height != b.Height || len(a.Cells) != len(b.Cells) {
		return false
	}
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			return false
		}
	}
	return true
}

func TestEncode_Table(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want []types.Rect
	}{
		{"all off", []string{"....", "...."}, nil},
		{"all on", []string{"###", "###", "###"}, []types.Rect{{X: 0, Y: 0, W: 3, H: 3, V: types.On}}},
		{"single cell", []string{"...", ".#.", "..."}, []types.Rect{{X: 1, Y: 1, W: 1, H: 1, V: types.On}}},
		{"stacked runs merge", []string{".##.", ".##.", "...."}, []types.Rect{{X: 1, Y: 0, W: 2, H: 2, V: types.On}}},
		{
			"different widths do not merge",
			[]string{"##..", "###."},
			[]types.Rect{{X: 0, Y: 0, W: 2, H: 1, V: types.On}, {X: 0, Y: 1, W: 3, H: 1, V: types.On}},
		},
		{
			"gap row breaks rectangle",
			[]string{"#", ".", "#"},
			[]types.Rect{{X: 0, Y: 0, W: 1, H: 1, V: types.On}, {X: 0, Y: 2, W: 1, H: 1, V: types.On}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(frameFromRows(tt.rows...))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rects %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("rect %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEncode_Checkerboard(t *testing.T) {
	f := types.NewBinaryFrame(8, 6)
	on := 0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if (x+y)%2 == 0 {
				f.Set(x, y, true)
				on++
			}
		}
	}
	rects := Encode(f)
	if len(rects) != on {
		t.Fatalf("checkerboard: got %d rects, want one per on cell (%d)", len(rects), on)
	}
	for _, r := range rects {
		if r.W != 1 || r.H != 1 {
			t.Fatalf("checkerboard rect not 1x1: %+v", r)
		}
	}
}

func TestEncode_RoundTripAndNonOverlap(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		w := 1 + rng.Intn(24)
		h := 1 + rng.Intn(18)
		f := randomFrame(rng, w, h, []float64{0.05, 0.5, 0.9}[i%3])
		rects := Encode(f)

		cover := make([]int, w*h)
		for _, r := range rects {
			if r.W < 1 || r.H < 1 || r.X < 0 || r.Y < 0 || r.X+r.W > w || r.Y+r.H > h {
				t.Fatalf("case %d: rect out of bounds: %+v in %dx%d", i, r, w, h)
			}
			if r.V != types.On {
				t.Fatalf("case %d: off rect emitted: %+v", i, r)
			}
			for y := r.Y; y < r.Y+r.H; y++ {
				for x := r.X; x < r.X+r.W; x++ {
					cover[y*w+x]++
				}
			}
		}
		for k, n := range cover {
			if n > 1 {
				t.Fatalf("case %d: cell %d covered %d times", i, k, n)
			}
		}
		if got := Paint(rects, w, h); !sameCells(got, f) {
			t.Fatalf("case %d: round trip mismatch for %dx%d frame", i, w, h)
		}
	}
}

func TestEncodeFrame_SizeMismatch(t *testing.T) {
	f := types.NewBinaryFrame(4, 3)
	_, err := EncodeFrame(12, f, 4, 4)
	if err == nil {
		t.Fatalf("expected error")
	}
	var fe *FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if fe.Index != 12 {
		t.Fatalf("unexpected frame index %d", fe.Index)
	}

	rects, err := EncodeFrame(0, frameFromRows("##", "##"), 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rects) != 1 {
		t.Fatalf("expected 1 rect, got %d", len(rects))
	}
}
