// Package watch re-runs a function whenever a scene file or one of its
// sublayers changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sceneqc/internal/logging"
	"sceneqc/internal/scene"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// RunFunc is invoked once at start and after every settled change. Its
// errors are logged; the watch goes on.
type RunFunc func(ctx context.Context) error

// Watcher follows one scene and its layer stack.
type Watcher struct {
	path     string
	debounce time.Duration
	run      RunFunc
	fw       *fsnotify.Watcher

	files map[string]bool
	dirs  map[string]bool
}

// New creates a watcher for the scene at path. debounce <= 0 means
// DefaultDebounce.
func New(path string, debounce time.Duration, run RunFunc) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		run:      run,
		fw:       fw,
		files:    map[string]bool{},
		dirs:     map[string]bool{},
	}, nil
}

// Run blocks until ctx ends. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	logger := logging.New("watch")
	defer w.fw.Close()

	w.trigger(ctx)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
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
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			logger.Debug("scene file changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		case <-timerC:
			timerC = nil
			w.trigger(ctx)
		}
	}
}

// trigger refreshes the watched set, since sublayers may have been added or
// removed, then runs.
func (w *Watcher) trigger(ctx context.Context) {
	logger := logging.New("watch")
	if err := w.refresh(); err != nil {
		logger.Warn("refresh watched files", "error", err)
	}
	if err := w.run(ctx); err != nil {
		logger.Warn("run failed; waiting for the next change", "error", err)
	}
}

// refresh watches the parent directory of every layer file. Directories are
// watched instead of files so editors that save by rename are seen. When part
// of the layer stack fails to load, the layers found so far stay watched.
func (w *Watcher) refresh() error {
	files, err := scene.SceneFiles(w.path)
	if len(files) == 0 {
		abs, absErr := filepath.Abs(w.path)
		if absErr != nil {
			return absErr
		}
		files = []string{abs}
	}
	w.files = map[string]bool{}
	for _, f := range files {
		w.files[filepath.Clean(f)] = true
		dir := filepath.Dir(f)
		if w.dirs[dir] {
			continue
		}
		if addErr := w.fw.Add(dir); addErr != nil {
			return fmt.Errorf("watch %s: %w", dir, addErr)
		}
		w.dirs[dir] = true
	}
	return err
}
