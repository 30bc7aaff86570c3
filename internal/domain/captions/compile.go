package captions

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/forPelevin/cellcast/internal/types"
)

var (
	ErrEmptyInterval = errors.New("start is not before end")
	ErrNoText        = errors.New("no text")
)

// BlockError describes a dropped block.
type BlockError struct {
	Index int
	Line  int
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d (line %d): %v", e.Index, e.Line, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

// Compile turns raw blocks into a track sorted by start time. Invalid blocks
// are dropped and reported through logf; ties keep authoring order. Overlapping
// cues are kept as authored.
func Compile(blocks []types.RawBlock, logf func(string, ...any)) types.CueTrack {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	out := make(types.CueTrack, 0, len(blocks))
	for i, b := range blocks {
		cue, err := compileBlock(b)
		if err != nil {
			logf("captions: dropped %v", &BlockError{Index: i, Line: b.Line, Err: err})
			continue
		}
		out = append(out, cue)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// CompileText reads and compiles one caption file body.
func CompileText(name, text string, logf func(string, ...any)) types.CueTrack {
	return Compile(Read(FormatFor(name), text, logf), logf)
}

func compileBlock(b types.RawBlock) (types.Cue, error) {
	start, err := ParseTimestamp(b.Start)
	if err != nil {
		return types.Cue{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseTimestamp(b.End)
	if err != nil {
		return types.Cue{}, fmt.Errorf("end: %w", err)
	}
	if start >= end {
		return types.Cue{}, fmt.Errorf("%w: %s --> %s", ErrEmptyInterval, b.Start, b.End)
	}

	lines := make([]string, 0, len(b.Lines))
	for _, l := range b.Lines {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return types.Cue{}, ErrNoText
	}
	return types.Cue{Start: start, End: end, Text: strings.Join(lines, "\n")}, nil
}
