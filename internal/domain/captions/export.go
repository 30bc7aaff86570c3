package captions

import (
	"fmt"
	"math"
	"strings"

	"github.com/forPelevin/cellcast/internal/types"
)

// Render writes a cue track back out as timed text, for players and burn-in
// tools that cannot read cue files.
func Render(format Format, track types.CueTrack) (string, error) {
	switch format {
	case FormatSRT:
		return renderSRT(track), nil
	case FormatVTT:
		return renderVTT(track), nil
	case FormatASS:
		return renderASS(track), nil
	default:
		return "", fmt.Errorf("unsupported caption format %q", format)
	}
}

// Ext is the file extension Render output is conventionally saved under.
func (f Format) Ext() string { return "." + string(f) }

func renderSRT(track types.CueTrack) string {
	var b strings.Builder
	for i, c := range track {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, clockTime(c.Start, ","), clockTime(c.End, ","), c.Text)
	}
	return b.String()
}

func renderVTT(track types.CueTrack) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, c := range track {
		fmt.Fprintf(&b, "\n%s --> %s\n%s\n", clockTime(c.Start, "."), clockTime(c.End, "."), vttEscape.Replace(c.Text))
	}
	return b.String()
}

// Cue text may not carry a raw & or <, and --> would end the cue early.
var vttEscape = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func renderASS(track types.CueTrack) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range track {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(c.Start))
		b.WriteString(",")
		b.WriteString(assTime(c.End))
		b.WriteString(",Default,,0,0,0,,")
		b.WriteString(sanitizeASS(c.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1280
PlayResY: 720
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default, Noto Sans CJK JP, 48, &H00FFFFFF, &H00FFFFFF, &H00000000, &H64000000, 0,0,0,0,100,100,0,0,1,3,1,2, 40,40,40,1
`)
}

// clockTime formats seconds as HH:MM:SS<sep>mmm.
func clockTime(sec float64, sep string) string {
	ms := int64(math.Round(math.Max(sec, 0) * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms)
}

// assTime formats seconds as H:MM:SS.cc.
func assTime(sec float64) string {
	cs := int64(math.Round(math.Max(sec, 0) * 100))
	h := cs / 360_000
	cs -= h * 360_000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// Override blocks would be stripped on the way back in; newlines become hard
// breaks.
func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", `\N`)
	return s
}
