package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce absorbs editor write bursts (truncate + write + chmod) into one
// reload.
const debounce = 200 * time.Millisecond

// Watcher reloads the config file on change and hands the parsed result to
// a callback. Only the daemon uses it; one-shot commands read the file once.
type Watcher struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	onLoad  func(*Config)
	closeCh chan struct{}
}

// Watch starts watching path and invokes onLoad with each successfully
// parsed revision. Parse failures keep the previous config and are logged.
func Watch(path string, logger *slog.Logger, onLoad func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	// Watch the directory: editors replace files, which drops a watch on
	// the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watcher %s: %w", path, err)
	}

	w := &Watcher{
		path:    path,
		logger:  logger.With("component", "config"),
		watcher: fsw,
		onLoad:  onLoad,
		closeCh: make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.closeCh)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watch", "err", err)
		case <-reload:
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error("config reload failed, keeping previous", "err", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path)
			w.onLoad(cfg)
		}
	}
}
