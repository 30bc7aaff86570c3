package captions

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/forPelevin/cellcast/internal/types"
)

type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// FormatFor picks the reader by file extension; unknown extensions read as SRT.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".vtt":
		return FormatVTT
	case ".ass", ".ssa":
		return FormatASS
	default:
		return FormatSRT
	}
}

// Read splits timed text into raw blocks. Blocks without a usable timing line
// are skipped and reported through logf.
func Read(format Format, text string, logf func(string, ...any)) []types.RawBlock {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	switch format {
	case FormatASS:
		return readASS(text, logf)
	case FormatVTT:
		return readCueBlocks(text, true, logf)
	default:
		return readCueBlocks(text, false, logf)
	}
}

type chunk struct {
	line  int
	lines []string
}

func splitChunks(text string) []chunk {
	var out []chunk
	var cur *chunk
	for i, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			cur = nil
			continue
		}
		if cur == nil {
			out = append(out, chunk{line: i + 1})
			cur = &out[len(out)-1]
		}
		cur.lines = append(cur.lines, l)
	}
	return out
}

var vttTag = regexp.MustCompile(`<[^>]*>`)

// readCueBlocks handles SRT and WebVTT: an optional index or cue identifier
// line, a "start --> end" line, then text.
func readCueBlocks(text string, vtt bool, logf func(string, ...any)) []types.RawBlock {
	var out []types.RawBlock
	for n, c := range splitChunks(text) {
		first := strings.TrimSpace(c.lines[0])
		if vtt {
			if n == 0 && strings.HasPrefix(first, "WEBVTT") {
				continue
			}
			if strings.HasPrefix(first, "NOTE") || first == "STYLE" || first == "REGION" {
				continue
			}
		}

		ti := -1
		switch {
		case strings.Contains(c.lines[0], "-->"):
			ti = 0
		case len(c.lines) > 1 && strings.Contains(c.lines[1], "-->"):
			ti = 1
		}
		if ti < 0 {
			logf("captions: line %d: block without timing line skipped", c.line)
			continue
		}

		start, rest, _ := strings.Cut(c.lines[ti], "-->")
		end := ""
		if f := strings.Fields(rest); len(f) > 0 {
			end = f[0]
		}

		lines := append([]string(nil), c.lines[ti+1:]...)
		if vtt {
			for i := range lines {
				lines[i] = html.UnescapeString(vttTag.ReplaceAllString(lines[i], ""))
			}
		}
		out = append(out, types.RawBlock{
			Line:  c.line + ti,
			Start: strings.TrimSpace(start),
			End:   end,
			Lines: lines,
		})
	}
	return out
}

var assOverride = regexp.MustCompile(`\{[^}]*\}`)

func readASS(text string, logf func(string, ...any)) []types.RawBlock {
	var out []types.RawBlock
	inEvents := false
	startCol, endCol, textCol, ncols := 1, 2, 9, 10

	for i, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "[") && strings.HasSuffix(l, "]") {
			inEvents = strings.EqualFold(l, "[Events]")
			continue
		}
		if !inEvents {
			continue
		}

		key, val, ok := strings.Cut(l, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Format":
			cols := strings.Split(val, ",")
			ncols = len(cols)
			for ci, col := range cols {
				switch strings.TrimSpace(col) {
				case "Start":
					startCol = ci
				case "End":
					endCol = ci
				case "Text":
					textCol = ci
				}
			}
		case "Dialogue":
			fields := strings.SplitN(val, ",", ncols)
			if len(fields) <= max(startCol, endCol, textCol) {
				logf("captions: line %d: dialogue with %d fields skipped", i+1, len(fields))
				continue
			}
			body := assOverride.ReplaceAllString(fields[textCol], "")
			body = strings.NewReplacer(`\N`, "\n", `\n`, "\n", `\h`, " ").Replace(body)
			out = append(out, types.RawBlock{
				Line:  i + 1,
				Start: strings.TrimSpace(fields[startCol]),
				End:   strings.TrimSpace(fields[endCol]),
				Lines: strings.Split(body, "\n"),
			})
		}
	}
	return out
}
