// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch re-runs a function when any of a set of files changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Rename

// Func is called with the changed paths once a burst of events settles.
type Func func(ctx context.Context, changed []string) error

// Watcher watches individual files. It watches their parent directories so
// files replaced by rename (as most editors save) keep being tracked.
type Watcher struct {
	fsw      *fsnotify.Watcher
	targets  map[string]struct{}
	debounce time.Duration
	fn       Func
	logger   *slog.Logger
}

// New starts watching paths. Events are delivered by Run.
func New(paths []string, debounce time.Duration, fn Func) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	targets := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", d, err)
		}
	}

	return &Watcher{
		fsw:      fsw,
		targets:  targets,
		debounce: debounce,
		fn:       fn,
		logger:   slog.Default(),
	}, nil
}

// Run delivers debounced changes to fn until ctx is done, then closes the
// watcher. Errors from fn are logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = map[string]struct{}{}
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case e, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(e.Name)
			if _, tracked := w.targets[name]; !tracked || e.Op&relevantOps == 0 {
				continue
			}
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.logger.Info("change detected", "files", changed)
			if err := w.fn(ctx, changed); err != nil {
				w.logger.Error("rerun failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Watch calls fn each time one of paths changes, until ctx is done.
func Watch(ctx context.Context, paths []string, debounce time.Duration, fn Func) error {
	w, err := New(paths, debounce, fn)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
