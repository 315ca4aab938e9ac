package configsrc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes one or more configuration root directories and
// invokes a callback, debounced, whenever a configuration document
// under them changes. fsnotify watches directories non-recursively, so
// every directory discovered under each root is added individually.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
	done     chan struct{}
}

// NewWatcher creates a Watcher over roots. Call Start to begin
// delivering debounced change notifications to onChange; call Close
// when done.
func NewWatcher(roots []string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create filesystem watcher: %w", err)
	}

	w := &Watcher{fsw: fsw, logger: logger, debounce: 300 * time.Millisecond, done: make(chan struct{})}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// A root that doesn't exist yet is not fatal; the watcher
			// simply has nothing to watch until it's created.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// Start runs the watch loop in a goroutine, calling onChange (debounced
// across bursts of events) whenever a watched document changes, is
// created, or is removed. onChange is only invoked for paths matching
// the same *-config.yaml/yml/json convention LoadDirectories uses.
// Edits to scripts are picked up by the script cache's mtime check
// (§4.4). Edits to response files are not watched: the response-file
// cache is keyed by path and is only purged when a reload runs.
func (w *Watcher) Start(onChange func()) {
	go func() {
		var timer *time.Timer
		for {
			select {
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if !isConfigDocument(filepath.Base(event.Name)) {
					continue
				}
				w.logger.Debug("configuration file changed", "path", event.Name, "op", event.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, onChange)
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("configuration watcher error", "error", err)
			case <-w.done:
				return
			}
		}
	}()
}

// Close stops the watch loop and releases the underlying filesystem
// handles.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
