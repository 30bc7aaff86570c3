package rectframes

import (
	"fmt"

	"github.com/forPelevin/cellcast/internal/types"
)

// FrameError reports a frame that could not be encoded.
type FrameError struct {
	Index int
	Err   error
}

func (e *FrameError) Error() string { return fmt.Sprintf("frame %d: %v", e.Index, e.Err) }

func (e *FrameError) Unwrap() error { return e.Err }

// Check verifies that f matches the declared grid of the frame set.
func Check(f types.BinaryFrame, width, height int) error {
	if f.Width != width || f.Height != height {
		return fmt.Errorf("size mismatch: got %dx%d, expected %dx%d", f.Width, f.Height, width, height)
	}
	if len(f.Cells) != width*height {
		return fmt.Errorf("cell count mismatch: got %d, expected %d", len(f.Cells), width*height)
	}
	return nil
}

// EncodeFrame is Encode with the frame-set dimension check, failing with a *FrameError.
func EncodeFrame(index int, f types.BinaryFrame, width, height int) ([]types.Rect, error) {
	if err := Check(f, width, height); err != nil {
		return nil, &FrameError{Index: index, Err: err}
	}
	return Encode(f), nil
}

// span is one horizontal run of equal cells, still open for vertical extension.
// rect indexes the output slice, or is -1 for off runs.
type span struct {
	x0, x1 int
	on     bool
	rect   int
}

// Encode decomposes f into non-overlapping on-rectangles whose union is exactly
// the set of on cells. Rows are run-length encoded, then a run extends the
// rectangle above it only when start, end and value all match. Output is
// ordered by the row and column where each rectangle was opened.
func Encode(f types.BinaryFrame) []types.Rect {
	w, h := f.Width, f.Height
	rects := []types.Rect{}
	if w <= 0 || h <= 0 {
		return rects
	}

	prev := make([]span, 0, w)
	cur := make([]span, 0, w)
	for y := 0; y < h; y++ {
		row := f.Cells[y*w : (y+1)*w]
		cur = cur[:0]
		j := 0
		for x := 0; x < w; {
			on := row[x]
			end := x + 1
			for end < w && row[end] == on {
				end++
			}

			s := span{x0: x, x1: end, on: on, rect: -1}
			// prev is sorted by x0 and partitions the row above, so at most
			// one candidate can match.
			for j < len(prev) && prev[j].x0 < x {
				j++
			}
			if j < len(prev) && prev[j].x0 == x && prev[j].x1 == end && prev[j].on == on {
				s.rect = prev[j].rect
				if s.rect >= 0 {
					rects[s.rect].H++
				}
			} else if on {
				s.rect = len(rects)
				rects = append(rects, types.Rect{X: x, Y: y, W: end - x, H: 1, V: types.On})
			}
			cur = append(cur, s)
			x = end
		}
		prev, cur = cur, prev
	}
	return rects
}
