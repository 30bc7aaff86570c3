package types

// BinaryFrame is one two-tone frame, row-major. Cells[y*Width+x] is true when the cell is on.
type BinaryFrame struct {
	Width  int
	Height int
	Cells  []bool
}

func NewBinaryFrame(w, h int) BinaryFrame {
	return BinaryFrame{Width: w, Height: h, Cells: make([]bool, w*h)}
}

func (f BinaryFrame) At(x, y int) bool { return f.Cells[y*f.Width+x] }

func (f BinaryFrame) Set(x, y int, on bool) { f.Cells[y*f.Width+x] = on }

// Rect value bits.
const (
	Off uint8 = 0
	On  uint8 = 1
)

type Rect struct {
	X int   `json:"x"`
	Y int   `json:"y"`
	W int   `json:"w"`
	H int   `json:"h"`
	V uint8 `json:"v"`
}

type FrameSet struct {
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	FPS       float64  `json:"fps,omitempty"`
	Threshold int      `json:"threshold,omitempty"`
	ThMul     float64  `json:"th_mul,omitempty"`
	Invert    bool     `json:"invert,omitempty"`
	Frames    [][]Rect `json:"rect_frames"`
}

type Cue struct {
	Start float64 `json:"s"`
	End   float64 `json:"e"`
	Text  string  `json:"t"`
}

// CueTrack is sorted ascending by Start.
type CueTrack []Cue

// RawBlock is one timed-text block as authored, before timestamp parsing.
type RawBlock struct {
	Line  int // 1-based source line of the timing line
	Start string
	End   string
	Lines []string
}
