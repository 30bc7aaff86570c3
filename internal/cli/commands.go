package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/cellcast/internal/config"
	"github.com/forPelevin/cellcast/internal/pipeline"
	"github.com/forPelevin/cellcast/internal/player"
	"github.com/forPelevin/cellcast/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/cellcast/internal/server"
	"github.com/forPelevin/cellcast/internal/usecase"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Regenerate stale frame, audio and caption artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, func(*pipeline.Config) {})
		},
	}
	addGridFlags(cmd)
	cmd.Flags().Bool("force", false, "Rebuild every artifact regardless of timestamps")
	return cmd
}

func newFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Encode the PNG frame directory into the rect frames artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, func(c *pipeline.Config) { c.SkipCaptions = true })
		},
	}
	addGridFlags(cmd)
	cmd.Flags().Bool("force", false, "Rebuild even when the artifact is fresh")
	return cmd
}

func newCaptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captions [subtitle files...]",
		Short: "Compile SRT, WebVTT or ASS files into cue tracks",
		Long: "Without arguments every track in the project file is compiled when stale.\n" +
			"With arguments each file is compiled unconditionally into the output directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runPipeline(cmd, func(c *pipeline.Config) { c.SkipFrames = true })
			}
			return compileFiles(cmd, args)
		},
	}
	cmd.Flags().Bool("force", false, "Recompile even when the artifacts are fresh")
	return cmd
}

func runPipeline(cmd *cobra.Command, adjust func(*pipeline.Config)) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	cfg := pipelineConfig(p, logfFor(cmd))
	cfg.Force, _ = cmd.Flags().GetBool("force")
	adjust(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	rep, err := pipeline.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	for _, a := range rep.Regenerated {
		fmt.Fprintln(cmd.OutOrStdout(), a)
	}
	return nil
}

func compileFiles(cmd *cobra.Command, files []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	logf := logfFor(cmd)
	uc := usecase.New(usecase.Deps{})
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		name = strings.TrimPrefix(name, "transcript_")
		out := p.TrackArtifact(config.Track{Name: name})
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		track, err := uc.CompileTrack(usecase.TrackInput{Name: name, Source: f, Out: out}, logf)
		if err != nil {
			return err
		}
		logf("captions %s: %d cues", name, len(track))
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build stale artifacts and serve them read-only over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("host", "", "Listen host (overrides config)")
	cmd.Flags().Int("port", 0, "Listen port (overrides config)")
	cmd.Flags().Bool("watch", false, "Rebuild and notify clients when sources change")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		p.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		p.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("watch") {
		p.Server.Watch, _ = cmd.Flags().GetBool("watch")
	}
	logf := logfFor(cmd)

	cfg := pipelineConfig(p, logf)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if _, err := pipeline.Run(ctx, cfg); err != nil {
		return err
	}

	scfg := server.Config{Host: p.Server.Host, Port: p.Server.Port, Mount: p.Server.Mount, Dir: p.OutDir, Logf: logf}
	if err := scfg.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	srv := server.New(scfg)
	if !p.Server.Watch {
		return srv.Run(ctx)
	}

	w := &server.Watcher{
		Dirs: watchDirs(p, logf),
		Rebuild: func(ctx context.Context) ([]string, error) {
			rep, err := pipeline.Run(ctx, cfg)
			return rep.Regenerated, err
		},
		Notify: srv.Notify,
		Logf:   logf,
	}
	watchErr := make(chan error, 1)
	go func() {
		err := w.Run(ctx)
		if err != nil {
			cancel()
		}
		watchErr <- err
	}()

	err = srv.Run(ctx)
	cancel()
	if werr := <-watchErr; werr != nil {
		return werr
	}
	return err
}

// watchDirs lists the existing source directories a rebuild depends on.
func watchDirs(p *config.Project, logf func(string, ...any)) []string {
	candidates := []string{p.FramesDir, p.CaptionsDir}
	if p.SourceVideo != "" {
		candidates = append(candidates, filepath.Dir(p.SourceVideo))
	}
	seen := map[string]bool{}
	var dirs []string
	for _, d := range candidates {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		if st, err := os.Stat(d); err != nil || !st.IsDir() {
			logf("watch: skipping %s", d)
			continue
		}
		dirs = append(dirs, d)
	}
	return dirs
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the built artifacts in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runPlay,
	}
	cmd.Flags().Float64("duration", 0, "Playback length in seconds (default: audio length, else frames/fps)")
	cmd.Flags().Float64("from", 0, "Start position in seconds")
	cmd.Flags().Float64("rate", 0, "Redraw rate in Hz (default: frame set fps)")
	cmd.Flags().Int("cols", 0, "Screen columns (default: terminal width)")
	cmd.Flags().Int("rows", 0, "Screen rows (default: terminal height)")
	cmd.Flags().StringSlice("tracks", nil, "Caption tracks to show (default: all)")
	return cmd
}

func runPlay(cmd *cobra.Command, _ []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	duration, _ := flags.GetFloat64("duration")
	from, _ := flags.GetFloat64("from")
	rate, _ := flags.GetFloat64("rate")
	cols, _ := flags.GetInt("cols")
	rows, _ := flags.GetInt("rows")
	only, _ := flags.GetStringSlice("tracks")

	tracks, err := selectTracks(p, only)
	if err != nil {
		return err
	}
	cfg := player.Config{
		FrameSet: p.FrameSetArtifact(),
		Tracks:   tracks,
		Audio:    p.AudioArtifact(),
		Duration: duration,
		From:     from,
		Rate:     rate,
		Out:      cmd.OutOrStdout(),
		Cols:     cols,
		Rows:     rows,
		Logf:     logfFor(cmd),
	}
	prober := ffmpeg.New(getenvDefault("FFMPEG_PATH", "ffmpeg"), getenvDefault("FFPROBE_PATH", "ffprobe"))
	return player.Run(cmd.Context(), cfg, prober)
}

func selectTracks(p *config.Project, only []string) ([]player.Track, error) {
	want := map[string]bool{}
	for _, n := range only {
		want[strings.TrimSpace(n)] = true
	}
	filter := len(want) > 0
	var out []player.Track
	for _, t := range p.Tracks {
		if filter && !want[t.Name] {
			continue
		}
		delete(want, t.Name)
		out = append(out, player.Track{Name: t.Name, Path: p.TrackArtifact(t)})
	}
	if len(want) > 0 {
		var missing []string
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, errors.New("unknown tracks: " + strings.Join(missing, ", "))
	}
	return out, nil
}
