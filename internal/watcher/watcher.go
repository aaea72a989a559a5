// Package watcher re-triggers diagnosis when the display topology changes.
// Hotplug shows up as node churn in /dev/dri, so watching that directory
// catches GPU resets, dock events and driver rebinds without polling.
package watcher

import (
	"context"
	"errors"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kiya956/drm-test/pkg/log"
)

// Watcher watches topology directories and fires a callback on change.
type Watcher struct {
	dirs     []string
	onChange func()
	debounce time.Duration
	log      log.Logger
}

// New creates a watcher over the given directories.
func New(dirs []string, onChange func(), logger log.Logger) *Watcher {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Watcher{
		dirs:     dirs,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		log:      logger.WithName("watcher"),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until the context is cancelled, invoking the callback after
// each burst of directory events. Device managers create and chmod nodes in
// quick succession on hotplug; the debounce collapses the burst into one
// diagnostic run.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			w.log.Warn("cannot watch directory", "dir", dir, err)
			continue
		}
		watched++
		w.log.Info("watching for topology changes", "dir", dir)
	}
	if watched == 0 {
		return ErrNothingToWatch
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("topology event", "path", event.Name, "op", event.Op.String())

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ErrNothingToWatch is returned when no watch directory could be added.
var ErrNothingToWatch = errors.New("no watchable directory")
