package artifact

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Stale reports whether artifact is missing or older than any of sources.
// A directory source counts as modified at its newest direct entry.
func Stale(sources []string, artifact string) (bool, error) {
	dst, err := os.Stat(artifact)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat artifact: %w", err)
	}
	for _, src := range sources {
		mt, err := modTime(src)
		if err != nil {
			return false, fmt.Errorf("stat source: %w", err)
		}
		if mt.After(dst.ModTime()) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureFresh runs regen when artifact is stale with respect to sources and
// reports whether it did. Calling it again without touching the sources is a
// no-op.
func EnsureFresh(sources []string, artifact string, regen func() error) (bool, error) {
	stale, err := Stale(sources, artifact)
	if err != nil {
		return false, err
	}
	if !stale {
		return false, nil
	}
	if err := regen(); err != nil {
		return false, fmt.Errorf("regenerate %s: %w", artifact, err)
	}
	return true, nil
}

func modTime(path string) (time.Time, error) {
	st, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if !st.IsDir() {
		return st.ModTime(), nil
	}
	newest := st.ModTime()
	entries, err := os.ReadDir(path)
	if err != nil {
		return time.Time{}, err
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest, nil
}
