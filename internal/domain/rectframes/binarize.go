package rectframes

import (
	"image"
	"math"

	"github.com/forPelevin/cellcast/internal/types"
)

// Binarize thresholds a grayscale frame at mean luma times thMul. Dark cells
// are on unless invert is set. The threshold actually used is returned.
func Binarize(gray *image.Gray, thMul float64, invert bool) (types.BinaryFrame, float64) {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	f := types.NewBinaryFrame(w, h)
	if w == 0 || h == 0 {
		return f, 0
	}

	var sum uint64
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for _, v := range row {
			sum += uint64(v)
		}
	}
	th := float64(sum) / float64(w*h) * thMul

	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x, v := range row {
			on := float64(v) < th
			if invert {
				on = !on
			}
			f.Cells[y*w+x] = on
		}
	}
	return f, th
}

// AverageThreshold rounds the mean of per-frame thresholds into the 0..255 luma range.
func AverageThreshold(sum float64, frames int) int {
	if frames <= 0 {
		return 0
	}
	avg := math.Round(sum / float64(frames))
	return int(math.Max(0, math.Min(255, avg)))
}
