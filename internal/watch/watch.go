// Package watch calls back when watched files change. Bursts of changes to
// one file are coalesced into a single call.
package watch

import (
	"sync"
	"time"
)

type debouncer struct {
	mu       sync.Mutex
	// running serializes onChange; a change arriving mid-call waits for it.
	running  sync.Mutex
	delay    time.Duration
	timers   map[string]*time.Timer
	onChange func(path string)
}

func newDebouncer(delay time.Duration, onChange func(string)) *debouncer {
	return &debouncer{delay: delay, timers: make(map[string]*time.Timer), onChange: onChange}
}

func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[path]; ok {
		timer.Stop()
	}
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		d.running.Lock()
		defer d.running.Unlock()
		d.onChange(path)
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}
