package playback

import (
	"context"
	"time"
)

// Clock reports the current playback position in seconds.
type Clock interface {
	Now() float64
}

// WallClock counts seconds since Start, offset by From.
type WallClock struct {
	Start time.Time
	From  float64
	now   func() time.Time
}

func NewWallClock(from float64) *WallClock {
	return &WallClock{Start: time.Now(), From: from, now: time.Now}
}

func (c *WallClock) Now() float64 {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return c.From + now().Sub(c.Start).Seconds()
}

// Loop drives e from ticks: on every tick it reads clock, resolves the state
// and calls render when the visible state changed since the last call. The
// first tick always renders. Loop returns when ctx is done, ticks is closed,
// render fails, or the clock passes end (end <= 0 disables that check).
func Loop(ctx context.Context, e *Engine, clock Clock, ticks <-chan time.Time, end float64, render func(State) error) error {
	var (
		prev    State
		started bool
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			now := clock.Now()
			st := e.Tick(now)
			if !started || !st.Equal(prev) {
				if err := render(st); err != nil {
					return err
				}
				prev, started = st, true
			}
			if end > 0 && now >= end {
				return nil
			}
		}
	}
}
