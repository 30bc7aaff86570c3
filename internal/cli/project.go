package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/forPelevin/cellcast/internal/config"
	"github.com/forPelevin/cellcast/internal/pipeline"
)

// loadProject reads the project file, then applies environment overrides and
// finally the flags that were set explicitly.
func loadProject(cmd *cobra.Command) (*config.Project, error) {
	path, _ := cmd.Flags().GetString("config")
	p, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(p); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("out") {
		p.OutDir, _ = flags.GetString("out")
	}
	if f := flags.Lookup("frames-dir"); f != nil && f.Changed {
		p.FramesDir = f.Value.String()
	}
	if f := flags.Lookup("video"); f != nil && f.Changed {
		p.SourceVideo = f.Value.String()
	}
	if flags.Lookup("width") != nil {
		if flags.Changed("width") {
			p.Width, _ = flags.GetInt("width")
		}
		if flags.Changed("height") {
			p.Height, _ = flags.GetInt("height")
		}
		if flags.Changed("fps") {
			p.FPS, _ = flags.GetFloat64("fps")
		}
		if flags.Changed("th-mul") {
			p.ThMul, _ = flags.GetFloat64("th-mul")
		}
		if flags.Changed("invert") {
			p.Invert, _ = flags.GetBool("invert")
		}
		if flags.Changed("workers") {
			p.Workers, _ = flags.GetInt("workers")
		}
		if flags.Changed("compact") {
			p.Compact, _ = flags.GetBool("compact")
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", p.Path(), err)
	}
	return p, nil
}

func applyEnv(p *config.Project) error {
	if v := os.Getenv("CELLCAST_OUT_DIR"); v != "" {
		p.OutDir = v
	}
	if v := os.Getenv("CELLCAST_HOST"); v != "" {
		p.Server.Host = v
	}
	if v := os.Getenv("CELLCAST_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CELLCAST_PORT: %w", err)
		}
		p.Server.Port = port
	}
	return nil
}

func addGridFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().String("video", "", "Source video to extract frames and audio from")
	cmd.Flags().String("frames-dir", d.FramesDir, "Directory of PNG frames")
	cmd.Flags().Int("width", d.Width, "Grid width in cells")
	cmd.Flags().Int("height", d.Height, "Grid height in cells")
	cmd.Flags().Float64("fps", d.FPS, "Frames per second")
	cmd.Flags().Float64("th-mul", d.ThMul, "Threshold multiplier applied to mean luma")
	cmd.Flags().Bool("invert", false, "Treat bright cells as on")
	cmd.Flags().Int("workers", 0, "Parallel frame encoders (0 = NumCPU)")
	cmd.Flags().Bool("compact", false, "Write rectangles as [x,y,w,h,v] tuples")
}

func pipelineConfig(p *config.Project, logf func(string, ...any)) pipeline.Config {
	cfg := pipeline.Config{
		SourceVideo: p.SourceVideo,
		FramesDir:   p.FramesDir,
		OutDir:      p.OutDir,
		FrameSetOut: p.FrameSetArtifact(),
		AudioOut:    p.AudioArtifact(),
		Width:       p.Width,
		Height:      p.Height,
		FPS:         p.FPS,
		ThMul:       p.ThMul,
		Invert:      p.Invert,
		Workers:     p.Workers,
		Compact:     p.Compact,
		Logf:        logf,

		FFmpegPath:  getenvDefault("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getenvDefault("FFPROBE_PATH", "ffprobe"),
	}
	for _, t := range p.Tracks {
		cfg.Tracks = append(cfg.Tracks, pipeline.Track{
			Name:   t.Name,
			Source: p.TrackSource(t),
			Out:    p.TrackArtifact(t),
		})
	}
	return cfg
}

func logfFor(cmd *cobra.Command) func(string, ...any) {
	if q, _ := cmd.Flags().GetBool("quiet"); q {
		return func(string, ...any) {}
	}
	w := cmd.ErrOrStderr()
	return func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
