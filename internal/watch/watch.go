// Package watch re-runs reconciliation when the topology document changes
// on disk. The parent directory is watched rather than the file itself, so
// editors that save by renaming a temp file over the document still
// produce events.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/busway/busway/internal/constants"
)

// Watcher triggers an apply callback on settled changes to one topology
// document.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	apply    func(ctx context.Context) error
}

// New creates a watcher for the document at path. Each settled burst of
// file events triggers one apply call.
func New(path string, apply func(ctx context.Context) error, log *slog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		interval: constants.WatchDebounceInterval,
		logger:   log,
		apply:    apply,
	}
}

// Run blocks watching the document until the context ends. Apply errors
// are logged and watching continues; only watcher setup errors and
// context cancellation end the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsWatcher.Close()

	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Info("watching topology document", "path", w.path)

	// pending stays nil until a relevant event starts the debounce
	// window, so the select arm is disabled between bursts.
	var pending <-chan time.Time
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("document changed", "op", event.Op.String())
			if debounce == nil {
				debounce = time.NewTimer(w.interval)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(w.interval)
			}
			pending = debounce.C

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)

		case <-pending:
			pending = nil
			if err := w.apply(ctx); err != nil {
				w.logger.Error("apply after document change failed", "error", err)
			}
		}
	}
}

// relevant filters directory events down to mutations of the document.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
