package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher rebuilds artifacts when files under the watched directories change.
// Bursts of events are coalesced into a single rebuild.
type Watcher struct {
	Dirs     []string
	Debounce time.Duration

	// Rebuild returns the artifacts it regenerated.
	Rebuild func(ctx context.Context) ([]string, error)
	Notify  func(artifacts []string)
	Logf    func(format string, args ...any)
}

const defaultDebounce = 300 * time.Millisecond

func (w *Watcher) Run(ctx context.Context) error {
	if w.Rebuild == nil {
		return errors.New("watcher: rebuild is required")
	}
	logf := w.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer fw.Close()
	for _, d := range w.Dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
		logf("watching %s", d)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logf("watch error: %v", err)
		case <-timer.C:
			changed, err := w.Rebuild(ctx)
			if err != nil {
				logf("rebuild failed: %v", err)
				continue
			}
			if len(changed) == 0 {
				logf("rebuild: nothing stale")
				continue
			}
			logf("rebuild: %d artifacts regenerated", len(changed))
			if w.Notify != nil {
				w.Notify(changed)
			}
		}
	}
}
