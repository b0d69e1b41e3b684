package policy

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to JSON configuration files.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewWatcher creates a watcher. A nil logger selects slog.Default().
func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{watcher: w, logger: logger}, nil
}

// Add watches a directory. Editors often replace files rather than write
// them in place, so directories are watched instead of single files.
func (w *Watcher) Add(dir string) error {
	if slices.Contains(w.watcher.WatchList(), dir) {
		return nil
	}
	return w.watcher.Add(dir)
}

// Run calls onChange with the path of every created, written or renamed
// .json file until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("config file changed", "path", event.Name, "op", event.Op.String())
			onChange(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "err", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
