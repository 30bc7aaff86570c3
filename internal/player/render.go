package player

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/cellcast/internal/domain/playback"
	"github.com/forPelevin/cellcast/internal/domain/rectframes"
	"github.com/forPelevin/cellcast/internal/types"
)

const (
	escHome      = "\x1b[H"
	escClearLine = "\x1b[K"
	escClear     = "\x1b[2J"
	escHide      = "\x1b[?25l"
	escShow      = "\x1b[?25h"
)

// Renderer draws playback states as half-block characters, two pixel rows
// per text row, followed by one caption line per track.
type Renderer struct {
	Out    io.Writer
	Cols   int
	Rows   int
	Names  []string
	Frames types.FrameSet
}

// Render is the playback.Loop callback.
func (r *Renderer) Render(st playback.State) error {
	var b strings.Builder
	b.WriteString(escHome)

	gridRows := r.Rows - len(st.Cues)
	if gridRows < 1 {
		gridRows = 1
	}
	var frame types.BinaryFrame
	if st.FrameActive && st.Frame < len(r.Frames.Frames) {
		frame = rectframes.Paint(r.Frames.Frames[st.Frame], r.Frames.Width, r.Frames.Height)
	} else {
		frame = types.NewBinaryFrame(r.Frames.Width, r.Frames.Height)
	}
	for _, line := range HalfBlocks(frame, r.Cols, gridRows) {
		b.WriteString(line)
		b.WriteString(escClearLine)
		b.WriteByte('\n')
	}
	for i, cs := range st.Cues {
		b.WriteString(r.captionLine(i, cs))
		b.WriteString(escClearLine)
		if i < len(st.Cues)-1 {
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(r.Out, b.String())
	return err
}

func (r *Renderer) captionLine(i int, cs playback.CueState) string {
	name := fmt.Sprintf("#%d", i)
	if i < len(r.Names) {
		name = r.Names[i]
	}
	line := name + ": "
	if cs.Active {
		line += strings.ReplaceAll(cs.Cue.Text, "\n", " / ")
	}
	return truncate(line, r.Cols)
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// HalfBlocks scales f to fit cols x rows character cells, keeping the aspect
// ratio, and returns one string per text row.
func HalfBlocks(f types.BinaryFrame, cols, rows int) []string {
	if f.Width <= 0 || f.Height <= 0 || cols <= 0 || rows <= 0 {
		return nil
	}
	outW, outH := fit(f.Width, f.Height, cols, rows*2)
	lines := make([]string, 0, (outH+1)/2)
	for y := 0; y < outH; y += 2 {
		var b strings.Builder
		for x := 0; x < outW; x++ {
			top := sample(f, x, y, outW, outH)
			bottom := y+1 < outH && sample(f, x, y+1, outW, outH)
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
		lines = append(lines, b.String())
	}
	return lines
}

func fit(w, h, maxW, maxH int) (int, int) {
	if w*maxH <= h*maxW {
		return max(1, w*maxH/h), maxH
	}
	return maxW, max(1, h*maxW/w)
}

func sample(f types.BinaryFrame, x, y, outW, outH int) bool {
	return f.At(x*f.Width/outW, y*f.Height/outH)
}
