//go:build !linux

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/njchilds90/hecate/internal/logger"
)

const pollInterval = 100 * time.Millisecond

type stamp struct {
	mod  time.Time
	size int64
}

// Watcher reports file changes by polling their modification time.
type Watcher struct {
	mu       sync.Mutex
	files    map[string]stamp
	debounce *debouncer
}

// New returns a watcher calling onChange once a changed file has been quiet
// for delay.
func New(delay time.Duration, onChange func(path string)) (*Watcher, error) {
	return &Watcher{files: make(map[string]stamp), debounce: newDebouncer(delay, onChange)}, nil
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.files[abs] = stamp{mod: info.ModTime(), size: info.Size()}
	w.mu.Unlock()
	return nil
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.debounce.stop()
			return ctx.Err()
		case <-ticker.C:
		}
		w.mu.Lock()
		for path, old := range w.files {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if now := (stamp{mod: info.ModTime(), size: info.Size()}); now != old {
				w.files[path] = now
				logger.Debug("File changed", "path", path)
				w.debounce.trigger(path)
			}
		}
		w.mu.Unlock()
	}
}

func (w *Watcher) Close() error {
	w.debounce.stop()
	return nil
}
