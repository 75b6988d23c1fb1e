package config

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"empire/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads the config file and exposes the latest valid snapshot.
// Cycles read Current() at tick start, so a reload never applies mid-cycle.
type Watcher struct {
	path    string
	current atomic.Pointer[Config]
}

func NewWatcher(path string, initial *Config) *Watcher {
	w := &Watcher{path: path}
	w.current.Store(initial)
	return w
}

// Current returns the latest valid config snapshot.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Start watches the config file directory until ctx is cancelled. Reload
// failures keep the previous snapshot and are logged, never fatal.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	go func() {
		defer fw.Close()
		var debounce *time.Timer
		target := filepath.Clean(w.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				// Editors fire several events per save; coalesce them.
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, w.reload)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warnf("config watcher: %v", err)
			}
		}
	}()
	return nil
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Warnf("config reload rejected, keeping previous snapshot: %v", err)
		return
	}
	w.current.Store(cfg)
	logger.Infof("config reloaded from %s", w.path)
}
