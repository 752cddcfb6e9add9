package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/sirprodigle/navfix/internal/logger"
	"github.com/sirprodigle/navfix/internal/scanner"
)

// RunFunc performs one fix run over the tree.
type RunFunc func(ctx context.Context) error

// Watcher calls a RunFunc after markdown files or directories change. Bursts
// of events are collapsed into one run once the tree has been quiet for the
// debounce interval, and runs are rate limited so the changes a run makes
// itself cannot keep it spinning.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	run       RunFunc
	logger    *logger.Logger
	debounce  time.Duration
	limiter   *rate.Limiter
	root      string
}

func New(run RunFunc, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		run:       run,
		logger:    log,
		debounce:  debounce,
		limiter:   rate.NewLimiter(rate.Every(debounce), 1),
	}, nil
}

// AddDirectory watches dir and every directory below it. The first
// directory added is the one reported while waiting.
func (w *Watcher) AddDirectory(dir string) error {
	if w.root == "" {
		w.root = dir
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

// Run blocks until ctx is cancelled. Errors from individual runs are logged
// and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timerCh:
			timerCh = nil
			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := w.run(ctx); err != nil {
				w.logger.Error("Fix run failed: %v", err)
			}
			w.logger.Watch(w.root)

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WatchError(err)
		}
	}
}

// handleEvent starts watching new directories and reports whether event
// should trigger a run.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.AddDirectory(event.Name); err != nil {
				w.logger.WatchError(err)
			}
			w.logger.FileChange(event.Name)
			return true
		}
	}
	if !Relevant(event) {
		return false
	}
	w.logger.FileChange(event.Name)
	return true
}

// Relevant reports whether a change to a markdown document can create or
// resolve a collision or break a link.
func Relevant(event fsnotify.Event) bool {
	if !scanner.IsMarkdown(event.Name) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
