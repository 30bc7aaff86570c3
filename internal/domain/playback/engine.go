package playback

import (
	"math"
	"sort"

	"github.com/forPelevin/cellcast/internal/types"
)

// Engine maps a clock position onto the frame to draw and the active cue per
// track. It keeps one lookup cursor per track so that non-decreasing queries
// are amortized O(1); a query earlier than the previous one re-seeks.
//
// Engine is not safe for concurrent use; it is meant to be driven by a single
// render loop.
type Engine struct {
	frames int
	rate   float64 // frames per second of playback
	tracks []cursor
}

type cursor struct {
	cues []types.Cue
	i    int
	last float64
	// ends are non-decreasing, so the cursor position can be binary searched.
	sortedEnds bool
}

// New builds an engine for frameCount frames spread over duration seconds.
// The rate is derived once here from the measured duration; when duration is
// not positive the fps hint is used instead, and with neither no frame is
// ever active.
func New(frameCount int, duration, fpsHint float64, tracks ...types.CueTrack) *Engine {
	e := &Engine{frames: max(frameCount, 0)}
	switch {
	case duration > 0 && !math.IsInf(duration, 0):
		e.rate = float64(e.frames) / duration
	case fpsHint > 0:
		e.rate = fpsHint
	}

	e.tracks = make([]cursor, len(tracks))
	for i, tr := range tracks {
		c := cursor{cues: tr, last: math.Inf(-1), sortedEnds: true}
		for k := 1; k < len(tr); k++ {
			if tr[k].End < tr[k-1].End {
				c.sortedEnds = false
				break
			}
		}
		e.tracks[i] = c
	}
	return e
}

// ForFrameSet is New with the frame count and fps hint taken from fs.
func ForFrameSet(fs types.FrameSet, duration float64, tracks ...types.CueTrack) *Engine {
	return New(len(fs.Frames), duration, fs.FPS, tracks...)
}

func (e *Engine) Frames() int { return e.frames }

func (e *Engine) Tracks() int { return len(e.tracks) }

// Duration is the playback length implied by the effective rate.
func (e *Engine) Duration() float64 {
	if e.rate <= 0 {
		return 0
	}
	return float64(e.frames) / e.rate
}

// ActiveFrame returns the frame index for time t. Negative times clamp to the
// first frame; times at or past the end have no frame.
func (e *Engine) ActiveFrame(t float64) (int, bool) {
	if e.frames == 0 || e.rate <= 0 || math.IsNaN(t) {
		return 0, false
	}
	if t < 0 {
		return 0, true
	}
	f := math.Floor(t * e.rate)
	if f >= float64(e.frames) {
		return 0, false
	}
	return int(f), true
}

// ActiveCue returns the cue of track that contains t. When cues overlap, the
// first one in track order wins.
func (e *Engine) ActiveCue(track int, t float64) (types.Cue, bool) {
	if track < 0 || track >= len(e.tracks) || math.IsNaN(t) {
		return types.Cue{}, false
	}
	c := &e.tracks[track]
	if len(c.cues) == 0 {
		return types.Cue{}, false
	}

	if t < c.last {
		c.seek(t)
	}
	c.last = t
	for c.i < len(c.cues)-1 && c.cues[c.i].End < t {
		c.i++
	}

	cue := c.cues[c.i]
	if cue.Start <= t && t <= cue.End {
		return cue, true
	}
	return types.Cue{}, false
}

// seek places the cursor where a scan from the first cue would stop for t.
func (c *cursor) seek(t float64) {
	if c.sortedEnds {
		c.i = sort.Search(len(c.cues), func(k int) bool { return c.cues[k].End >= t })
		if c.i == len(c.cues) {
			c.i = len(c.cues) - 1
		}
		return
	}
	c.i = 0
}

// CueState is the lookup result for one track.
type CueState struct {
	Cue    types.Cue
	Active bool
}

// State is everything a host needs to draw one tick.
type State struct {
	Frame       int
	FrameActive bool
	Cues        []CueState
}

// Equal reports whether drawing s would look the same as drawing o.
func (s State) Equal(o State) bool {
	if s.FrameActive != o.FrameActive || (s.FrameActive && s.Frame != o.Frame) || len(s.Cues) != len(o.Cues) {
		return false
	}
	for i := range s.Cues {
		if s.Cues[i].Active != o.Cues[i].Active || (s.Cues[i].Active && s.Cues[i].Cue != o.Cues[i].Cue) {
			return false
		}
	}
	return true
}

// Tick resolves the frame and every track at time now.
func (e *Engine) Tick(now float64) State {
	st := State{Cues: make([]CueState, len(e.tracks))}
	st.Frame, st.FrameActive = e.ActiveFrame(now)
	for i := range e.tracks {
		st.Cues[i].Cue, st.Cues[i].Active = e.ActiveCue(i, now)
	}
	return st
}
