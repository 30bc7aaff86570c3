package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "cellcast.yaml"

type Track struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

type Server struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Mount string `yaml:"mount"`
	Watch bool   `yaml:"watch"`
}

// Project is the cellcast.yaml document.
type Project struct {
	SourceVideo string `yaml:"source_video"`
	FramesDir   string `yaml:"frames_dir"`
	CaptionsDir string `yaml:"captions_dir"`
	OutDir      string `yaml:"out_dir"`
	Audio       string `yaml:"audio"`

	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	FPS     float64 `yaml:"fps"`
	Invert  bool    `yaml:"invert"`
	ThMul   float64 `yaml:"th_mul"`
	Workers int     `yaml:"workers"`
	Compact bool    `yaml:"compact"`

	Tracks []Track `yaml:"tracks"`
	Server Server  `yaml:"server"`

	path string
}

func Default() *Project {
	return &Project{
		FramesDir:   "frames",
		CaptionsDir: "lyrics",
		OutDir:      "out",
		Audio:       "audio.mp3",
		Width:       256,
		Height:      192,
		FPS:         30,
		ThMul:       0.95,
		Tracks: []Track{
			{Name: "jp", Source: "transcript_jp.srt"},
			{Name: "romaji", Source: "transcript_romaji.srt"},
			{Name: "en", Source: "transcript_en.srt"},
			{Name: "es", Source: "transcript_es.srt"},
		},
		Server: Server{Host: "127.0.0.1", Port: 8080, Mount: "/out"},
	}
}

// Load overlays the YAML file at path on the defaults. A missing file yields
// the defaults; fields absent from the file keep their default values.
func Load(path string) (*Project, error) {
	if path == "" {
		path = DefaultPath
	}
	p := Default()
	p.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		p.normalize()
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	p.normalize()
	return p, nil
}

// Path is the file the project was loaded from.
func (p *Project) Path() string { return p.path }

func (p *Project) normalize() {
	for _, d := range []*string{&p.FramesDir, &p.CaptionsDir, &p.OutDir} {
		if strings.TrimSpace(*d) != "" {
			*d = filepath.Clean(*d)
		}
	}
	p.SourceVideo = strings.TrimSpace(p.SourceVideo)
	p.Audio = strings.TrimSpace(p.Audio)
	for i := range p.Tracks {
		p.Tracks[i].Name = strings.TrimSpace(p.Tracks[i].Name)
		p.Tracks[i].Source = strings.TrimSpace(p.Tracks[i].Source)
	}
	p.Server.Mount = "/" + strings.Trim(strings.TrimSpace(p.Server.Mount), "/")
}

func (p *Project) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("grid must be positive, got %dx%d", p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("fps must be > 0")
	}
	if p.ThMul <= 0 {
		return fmt.Errorf("th_mul must be > 0")
	}
	if p.OutDir == "" {
		return errors.New("out_dir is empty")
	}
	if p.FramesDir == "" && p.SourceVideo == "" {
		return errors.New("frames_dir or source_video is required")
	}
	seen := map[string]bool{}
	for i, t := range p.Tracks {
		if t.Name == "" || t.Source == "" {
			return fmt.Errorf("track %d: name and source are required", i)
		}
		key := normalizePathSegment(t.Name)
		if seen[key] {
			return fmt.Errorf("track %q listed twice", t.Name)
		}
		seen[key] = true
	}
	if p.Server.Port <= 0 || p.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", p.Server.Port)
	}
	return nil
}

// TrackSource resolves a track's source against the captions dir.
func (p *Project) TrackSource(t Track) string {
	if filepath.IsAbs(t.Source) || p.CaptionsDir == "" {
		return t.Source
	}
	return filepath.Join(p.CaptionsDir, t.Source)
}

// TrackArtifact is the cue file a track compiles to.
func (p *Project) TrackArtifact(t Track) string {
	name := normalizePathSegment(t.Name)
	if name == "" {
		name = "track"
	}
	return filepath.Join(p.OutDir, "transcript_"+name+".json")
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func (p *Project) FrameSetArtifact() string {
	return filepath.Join(p.OutDir, "rectFrames.json")
}

// AudioArtifact is empty when no audio output is configured.
func (p *Project) AudioArtifact() string {
	if p.Audio == "" {
		return ""
	}
	if filepath.IsAbs(p.Audio) {
		return p.Audio
	}
	return filepath.Join(p.OutDir, p.Audio)
}
