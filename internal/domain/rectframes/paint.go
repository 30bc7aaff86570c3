package rectframes

import "github.com/forPelevin/cellcast/internal/types"

// Paint draws rects onto a blank w x h grid. Rects are clipped to the grid.
func Paint(rects []types.Rect, w, h int) types.BinaryFrame {
	f := types.NewBinaryFrame(w, h)
	for _, r := range rects {
		on := r.V != types.Off
		for y := max(r.Y, 0); y < min(r.Y+r.H, h); y++ {
			for x := max(r.X, 0); x < min(r.X+r.W, w); x++ {
				f.Cells[y*w+x] = on
			}
		}
	}
	return f
}
