//go:build linux

package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/njchilds90/hecate/internal/logger"
)

const (
	modified = unix.IN_MODIFY | unix.IN_CLOSE_WRITE
	// replaced covers editors that save by renaming a new file over the old.
	replaced = unix.IN_DELETE_SELF | unix.IN_MOVE_SELF
	events   = modified | replaced

	rewatchAttempts = 50
	rewatchDelay    = 20 * time.Millisecond
)

// Watcher reports file changes through inotify.
type Watcher struct {
	fd       int
	mu       sync.Mutex
	watches  map[int]string
	debounce *debouncer
}

// New returns a watcher calling onChange once a changed file has been quiet
// for delay.
func New(delay time.Duration, onChange func(path string)) (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init failed: %w", err)
	}
	return &Watcher{
		fd:       fd,
		watches:  make(map[int]string),
		debounce: newDebouncer(delay, onChange),
	}, nil
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	wd, err := unix.InotifyAddWatch(w.fd, abs, events)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	w.mu.Lock()
	w.watches[wd] = abs
	w.mu.Unlock()
	return nil
}

// Run reads events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	buf := make([]byte, unix.SizeofInotifyEvent*64)
	for {
		select {
		case <-ctx.Done():
			w.debounce.stop()
			return ctx.Err()
		default:
		}

		n, err := unix.Read(w.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				select {
				case <-ctx.Done():
				case <-time.After(100 * time.Millisecond):
				}
				continue
			}
			return fmt.Errorf("reading inotify events: %w", err)
		}

		for offset := 0; offset+unix.SizeofInotifyEvent <= n; {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)
			if event.Mask&events == 0 {
				continue
			}
			w.mu.Lock()
			path := w.watches[int(event.Wd)]
			w.mu.Unlock()
			if path == "" {
				continue
			}
			if event.Mask&replaced != 0 && !w.rewatch(ctx, int(event.Wd), path) {
				continue
			}
			logger.Debug("File changed", "path", path)
			w.debounce.trigger(path)
		}
	}
}

// rewatch moves the watch for path from the replaced inode wd to whatever
// file now lives at path, waiting briefly for it to appear.
func (w *Watcher) rewatch(ctx context.Context, wd int, path string) bool {
	w.mu.Lock()
	delete(w.watches, wd)
	w.mu.Unlock()
	// The kernel already dropped the watch of a deleted inode.
	_, _ = unix.InotifyRmWatch(w.fd, uint32(wd))

	for range rewatchAttempts {
		if err := w.Add(path); err == nil {
			logger.Debug("File replaced", "path", path)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(rewatchDelay):
		}
	}
	logger.Warn("Watched file is gone", "path", path)
	return false
}

func (w *Watcher) Close() error {
	w.debounce.stop()
	return unix.Close(w.fd)
}
