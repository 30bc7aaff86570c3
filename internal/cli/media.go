package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/cellcast/internal/artifact"
	"github.com/forPelevin/cellcast/internal/config"
	"github.com/forPelevin/cellcast/internal/domain/captions"
	"github.com/forPelevin/cellcast/internal/ports"
	"github.com/forPelevin/cellcast/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/cellcast/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/cellcast/internal/usecase"
)

func newTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Draft a track's caption source from speech with whisper.cpp",
		Args:  cobra.NoArgs,
		RunE:  runTranscribe,
	}
	cmd.Flags().String("track", "", "Track to draft (required)")
	cmd.Flags().String("lang", "", "Spoken language code (default: auto)")
	cmd.Flags().String("media", "", "Audio or video to transcribe (default: source_video)")
	cmd.Flags().Bool("force", false, "Replace an existing caption source")
	_ = cmd.MarkFlagRequired("track")
	return cmd
}

func runTranscribe(cmd *cobra.Command, _ []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	name, _ := flags.GetString("track")
	lang, _ := flags.GetString("lang")
	media, _ := flags.GetString("media")
	force, _ := flags.GetBool("force")

	track, ok := findTrack(p, name)
	if !ok {
		return fmt.Errorf("unknown track %q", name)
	}
	if media == "" {
		media = p.SourceVideo
	}
	if media == "" {
		return errors.New("nothing to transcribe: set --media or source_video")
	}

	video := ffmpeg.New(getenvDefault("FFMPEG_PATH", "ffmpeg"), getenvDefault("FFPROBE_PATH", "ffprobe"))
	whisper := whispercpp.New(
		getenvDefault("WHISPER_BIN", ".cache/bin/whisper.cpp"),
		getenvDefault("WHISPER_MODEL", ".cache/models/ggml-base.bin"),
	)
	uc := usecase.New(usecase.Deps{Video: video, Transcriber: whisper})
	out := p.TrackSource(track)
	if err := uc.Transcribe(cmd.Context(), usecase.TranscribeInput{Media: media, Lang: lang, Out: out, Force: force}); err != nil {
		return err
	}
	logfFor(cmd)("transcribe %s: drafted %s", track.Name, out)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func findTrack(p *config.Project, name string) (config.Track, bool) {
	for _, t := range p.Tracks {
		if t.Name == name {
			return t, true
		}
	}
	return config.Track{}, false
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write compiled cue tracks as SRT, WebVTT or ASS",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	cmd.Flags().String("format", "ass", "Output format: srt, vtt or ass")
	cmd.Flags().StringSlice("tracks", nil, "Tracks to export (default: all)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	formatName, _ := cmd.Flags().GetString("format")
	format := captions.Format(strings.ToLower(strings.TrimSpace(formatName)))
	switch format {
	case captions.FormatSRT, captions.FormatVTT, captions.FormatASS:
	default:
		return fmt.Errorf("unknown format %q (want srt, vtt or ass)", formatName)
	}
	only, _ := cmd.Flags().GetStringSlice("tracks")
	tracks, err := selectTracks(p, only)
	if err != nil {
		return err
	}

	logf := logfFor(cmd)
	for _, t := range tracks {
		cues, skipped, err := artifact.LoadCues(t.Path)
		if err != nil {
			return err
		}
		if skipped > 0 {
			logf("[%s] skipped %d unusable cues", t.Name, skipped)
		}
		text, err := captions.Render(format, cues)
		if err != nil {
			return err
		}
		out := strings.TrimSuffix(t.Path, filepath.Ext(t.Path)) + format.Ext()
		if err := artifact.WriteFileAtomic(out, []byte(text), 0o644); err != nil {
			return fmt.Errorf("export %s: %w", t.Name, err)
		}
		logf("export %s: %d cues", t.Name, len(cues))
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}

var _ ports.Transcriber = (*whispercpp.Adapter)(nil)
