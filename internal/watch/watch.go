// Package watch re-runs verification whenever the watched page changes on
// disk. It watches the target's directory, coalesces event bursts with a
// debounce timer, and hands each trigger to a caller-supplied run function.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/internal/config"
)

// RunFunc performs one verification run. A non-nil error means the harness
// environment is broken and the watch loop should stop; verification
// failures are reported by the run itself and return nil.
type RunFunc func(ctx context.Context) error

// Watcher triggers verification runs when the target file changes.
type Watcher struct {
	target   string
	dir      string
	all      bool
	debounce time.Duration
	run      RunFunc
	log      *zap.Logger
}

// New prepares a watcher for the page at target, which must be an existing
// regular file. With watch.all set, any .html/.js/.css change in the
// target's directory triggers a run, not just the target itself.
func New(target string, cfg *config.Config, run RunFunc, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve watch target %s: %w", target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", target, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: target must be a file, not a directory", target)
	}
	return &Watcher{
		target:   abs,
		dir:      filepath.Dir(abs),
		all:      cfg.Watch.All,
		debounce: cfg.Watch.Debounce,
		run:      run,
		log:      logger.Named("watch"),
	}, nil
}

// Run performs one verification immediately, then blocks re-running on
// every relevant change until ctx is canceled or a run reports an
// environment failure. The directory watch starts before the first run so
// edits made while it executes still count.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.log.Info("Watching for changes.",
		zap.String("dir", w.dir),
		zap.Bool("all", w.all),
		zap.Duration("debounce", w.debounce))

	if err := w.run(ctx); err != nil {
		return err
	}
	return w.loop(ctx, fsw.Events, fsw.Errors)
}

// loop is the event pump. It is fed by Run in production and directly by
// tests.
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("Change detected.",
				zap.String("path", ev.Name),
				zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.log.Warn("File watcher error.", zap.Error(err))

		case <-fire:
			timer = nil
			fire = nil
			if err := w.run(ctx); err != nil {
				return err
			}
		}
	}
}

// relevant filters directory noise down to edits that should re-verify.
// Editors that save through a temp file surface as Create or Rename, so
// those count alongside plain writes.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if w.all {
		switch strings.ToLower(filepath.Ext(ev.Name)) {
		case ".html", ".js", ".css":
			return true
		default:
			return false
		}
	}
	return filepath.Clean(ev.Name) == w.target
}
