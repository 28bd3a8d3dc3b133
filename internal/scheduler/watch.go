package scheduler

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leo2971998/DailyRoutine/internal/config"
)

const reloadDebounce = 250 * time.Millisecond

// watchConfig reloads the config file at path after it changes and delivers
// each successfully parsed version on the returned channel. The channel is
// closed when ctx ends.
func watchConfig(ctx context.Context, path string, logger *slog.Logger) (<-chan *config.Config, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory so editors that replace the file are seen.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan *config.Config, 1)
	go func() {
		defer close(out)
		defer w.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					pending = time.After(reloadDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config watch error", "error", err)
			case <-pending:
				pending = nil
				cfg, err := config.LoadFile(path)
				if err != nil {
					logger.Warn("ignoring invalid config", "path", path, "error", err)
					continue
				}
				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
