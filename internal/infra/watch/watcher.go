package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/audio"
)

// Counter receives one call per detected recording; middleware.Metrics implements it.
type Counter interface {
	AudioChanged(op string)
}

// Watcher reports recordings that appear in or leave the audio directory.
// It only observes; analyses still run on request.
type Watcher struct {
	Dir     string
	Metrics Counter
	Log     *slog.Logger
	// OnChange is called for every supported file event, mostly for tests.
	OnChange func(name, op string)
}

// Run blocks until ctx is done or the watcher fails to start.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.Dir); err != nil {
		return fmt.Errorf("watch add %s: %w", w.Dir, err)
	}

	log := w.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("watching audio directory", "dir", w.Dir)

	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			op := opName(evt.Op)
			if op == "" {
				continue
			}
			name := filepath.Base(evt.Name)
			if !audio.FormatOf(name).Supported() {
				continue
			}
			log.Info("audio directory changed", "file", name, "op", op)
			if w.Metrics != nil {
				w.Metrics.AudioChanged(op)
			}
			if w.OnChange != nil {
				w.OnChange(name, op)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// opName folds fsnotify ops into created/removed; writes and chmods are ignored.
// Uploads land via rename, which shows up as a create of the final name.
func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "created"
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return "removed"
	default:
		return ""
	}
}
