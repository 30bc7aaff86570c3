package captions

import (
	"testing"
)

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"lyrics/transcript_jp.srt": FormatSRT,
		"a.VTT":                    FormatVTT,
		"a.ass":                    FormatASS,
		"a.ssa":                    FormatASS,
		"a.txt":                    FormatSRT,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := FormatFor(in); got != want {
				t.Fatalf("FormatFor(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestRead_SRT(t *testing.T) {
	in := "\ufeff1\r\n00:00:01,000 --> 00:00:02,500\r\nHello\r\nworld\r\n\r\n" +
		"00:00:03,000 --> 00:00:04,000\nno index\n\n" +
		"just some text\nwithout timing\n\n" +
		"7\n00:00:05,000 --> 00:00:06,000\n"

	var skipped int
	blocks := Read(FormatSRT, in, func(string, ...any) { skipped++ })
	if skipped != 1 {
		t.Fatalf("expected 1 skipped block, got %d", skipped)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Start != "00:00:01,000" || blocks[0].End != "00:00:02,500" {
		t.Fatalf("unexpected timing: %+v", blocks[0])
	}
	if len(blocks[0].Lines) != 2 || blocks[0].Lines[1] != "world" {
		t.Fatalf("unexpected lines: %q", blocks[0].Lines)
	}
	if blocks[0].Line != 2 {
		t.Fatalf("timing line should be 2, got %d", blocks[0].Line)
	}
	if blocks[1].Lines[0] != "no index" {
		t.Fatalf("unexpected index-less block: %+v", blocks[1])
	}
	if len(blocks[2].Lines) != 0 {
		t.Fatalf("expected textless block to be kept for compile to drop: %+v", blocks[2])
	}

	track := Compile(blocks, nil)
	if len(track) != 2 || track[0].Text != "Hello\nworld" {
		t.Fatalf("unexpected track: %+v", track)
	}
}

func TestRead_VTT(t *testing.T) {
	in := `WEBVTT
Kind: captions

NOTE this is a comment
spanning lines

STYLE
::cue { color: yellow }

intro
00:01.000 --> 00:02.000 align:start position:10%
<i>Hi</i> <c.yellow>there</c>

00:00:03.000 --> 00:00:04.000
Second
`
	track := CompileText("t.vtt", in, nil)
	if len(track) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(track), track)
	}
	if track[0].Start != 1 || track[0].End != 2 || track[0].Text != "Hi there" {
		t.Fatalf("unexpected first cue: %+v", track[0])
	}
}

func TestRead_ASS(t *testing.T) {
	in := `[Script Info]
ScriptType: v4.00+

[V4+ Styles]
Format: Name, Fontname
Style: Default, Inter

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Comment: 0,0:00:00.00,0:00:01.00,Default,,0,0,0,,ignored
Dialogue: 0,0:00:01.00,0:00:02.50,Default,,0,0,0,,{\k20}Hello, {\i1}world{\i0}\Nline two
Dialogue: 0,0:00:00.50,0:00:00.90,Default,,0,0,0,,early
Dialogue: broken
`
	var skipped int
	track := Compile(Read(FormatASS, in, func(string, ...any) { skipped++ }), nil)
	if skipped != 1 {
		t.Fatalf("expected broken dialogue to be skipped, got %d skips", skipped)
	}
	if len(track) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(track), track)
	}
	if track[0].Text != "early" {
		t.Fatalf("expected sort by start, got %+v", track)
	}
	if track[1].Start != 1 || track[1].End != 2.5 || track[1].Text != "Hello, world\nline two" {
		t.Fatalf("unexpected dialogue cue: %+v", track[1])
	}
}

func TestRead_VTTCharacterReferences(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"a &lt;b&gt; c", "a <b> c"},
		{"<i>x</i>&nbsp;y", "x\u00a0y"},
		{"&lrm;left&rlm;", "\u200eleft\u200f"},
		{"plain & raw", "plain & raw"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			in := "WEBVTT\n\n00:01.000 --> 00:02.000 align:start\n" + tt.line + "\n"
			track := CompileText("a.vtt", in, nil)
			if len(track) != 1 || track[0].Text != tt.want {
				t.Fatalf("expected %q, got %+v", tt.want, track)
			}
		})
	}
}

func TestRead_SRTKeepsEntities(t *testing.T) {
	track := CompileText("a.srt", "1\n00:00:01,000 --> 00:00:02,000\nTom &amp; Jerry\n", nil)
	if len(track) != 1 || track[0].Text != "Tom &amp; Jerry" {
		t.Fatalf("unexpected track %+v", track)
	}
}
