package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leoustc/muxbar/internal/logging"
	"github.com/leoustc/muxbar/internal/platform"
)

var configLog = logging.ForComponent(logging.CompConfig)

// Watcher watches the config file for external edits and calls onChange
// with the freshly loaded config. Rapid write events (editors often write
// twice) are coalesced with a short debounce.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Config)

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the default config path. Call Start to
// begin watching.
func NewWatcher(onChange func(*Config)) (*Watcher, error) {
	return NewWatcherFor(Path(), onChange)
}

// NewWatcherFor creates a watcher for an explicit path (used by tests).
func NewWatcherFor(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		watcher:  fw,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Warning reports filesystem-specific fsnotify limitations, or "".
func (w *Watcher) Warning() string {
	return platform.CheckFsnotifySupport(w.path)
}

// Start begins watching. Must be called in a goroutine.
func (w *Watcher) Start() {
	// Watch the parent directory: editors replace files via rename, which
	// would silently detach a watch on the file itself.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		configLog.Warn("config_watch_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			configLog.Debug("config_watch_error", slog.String("error", err.Error()))
		}
	}
}

// scheduleReload coalesces bursts of events into a single reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(200*time.Millisecond, func() {
		cfg, err := LoadFrom(w.path)
		if err != nil {
			configLog.Warn("config_reload_failed", slog.String("error", err.Error()))
			return
		}
		configLog.Debug("config_reloaded")
		w.onChange(cfg)
	})
}

// Close stops the watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}
