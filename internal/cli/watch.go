package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// watchDir reports the last changed file under dir once writes have been
// quiet for debounce. Bursts from editors that save in several steps collapse
// into one event. The channel closes when ctx is done.
func watchDir(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer w.Close()

		timer := time.NewTimer(debounce)
		timer.Stop()
		var pending string

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if !relevant(evt) {
					continue
				}
				logger.Debug("file event", "op", evt.Op.String(), "name", evt.Name)
				pending = evt.Name
				timer.Reset(debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error", "err", err)
			case <-timer.C:
				select {
				case out <- pending:
				default:
				}
			}
		}
	}()
	return out, nil
}

// relevant filters out chmod noise and editor swap files.
func relevant(evt fsnotify.Event) bool {
	if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(evt.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}
