package whispercpp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// Transcribe runs whisper.cpp over a 16 kHz mono wav and returns the SRT it
// wrote next to outPrefix.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, outPrefix, lang string) (string, error) {
	if _, err := os.Stat(a.model); err != nil {
		return "", fmt.Errorf("whisper model: %w", err)
	}
	cmd := exec.CommandContext(ctx, a.bin, args(a.model, wavPath, outPrefix, lang)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}
	out := outPrefix + ".srt"
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("whisper.cpp output: %w", err)
	}
	return out, nil
}

func args(model, wavPath, outPrefix, lang string) []string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = "auto"
	}
	return []string{
		"-m", model,
		"-f", wavPath,
		"-l", lang,
		"-osrt",
		"-of", outPrefix,
	}
}
