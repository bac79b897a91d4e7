package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-applies the tunables file on change so operators can retune
// penalties, weights, and limits without a restart. A malformed document
// keeps the last good snapshot and logs a warning.
type Watcher struct {
	path     string
	store    *Store
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for the tunables file feeding the store.
func NewWatcher(path string, store *Store, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		store:    store,
		logger:   logger,
		debounce: 250 * time.Millisecond,
	}
}

// Run blocks watching the tunables file until ctx is cancelled.
// Editors replace files rather than writing in place, so the parent
// directory is watched and events are filtered by name.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			// Debounce rapid save sequences.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "tunables watcher error", "error", err)
		case <-reload:
			w.apply(ctx)
		}
	}
}

func (w *Watcher) apply(ctx context.Context) {
	t, err := LoadFile(w.path)
	if err != nil {
		w.logger.WarnContext(ctx, "tunables reload rejected, keeping previous",
			"path", w.path,
			"error", err,
		)
		return
	}
	if err := w.store.Replace(t); err != nil {
		w.logger.WarnContext(ctx, "tunables reload rejected, keeping previous",
			"path", w.path,
			"error", err,
		)
		return
	}
	w.logger.InfoContext(ctx, "tunables reloaded", "path", w.path)
}
