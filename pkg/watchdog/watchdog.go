// Package watchdog provides re-armable timeout guards that run a cleanup action when
// they are not re-armed or canceled before their deadline.
package watchdog

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wizchat/pkg/clock"
)

// Watchdog is a single re-armable timer. Arm restarts the countdown; Cancel stops it.
// A generation counter makes stale expirations harmless: a callback belonging to an
// earlier arming is ignored.
type Watchdog struct {
	name     string
	timeout  time.Duration
	clock    clock.Clock
	onExpire func()

	mu       sync.Mutex
	timer    clock.Timer
	gen      uint64
	deadline time.Time
}

// New returns an idle watchdog. A timeout <= 0 disables it: Arm becomes a no-op.
func New(name string, timeout time.Duration, c clock.Clock, onExpire func()) *Watchdog {
	if c == nil {
		c = clock.Real()
	}
	return &Watchdog{name: name, timeout: timeout, clock: c, onExpire: onExpire}
}

func (w *Watchdog) Name() string { return w.name }

func (w *Watchdog) Timeout() time.Duration { return w.timeout }

// Arm starts or restarts the countdown.
func (w *Watchdog) Arm() {
	if w.timeout <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	w.gen++
	gen := w.gen
	w.deadline = w.clock.Now().Add(w.timeout)
	w.timer = w.clock.AfterFunc(w.timeout, func() { w.fire(gen) })
}

// Cancel returns the watchdog to idle. It is safe to call on an idle watchdog.
func (w *Watchdog) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	w.gen++
}

// Armed reports whether a countdown is in progress.
func (w *Watchdog) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timer != nil
}

// Deadline returns the current deadline, if armed.
func (w *Watchdog) Deadline() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil {
		return time.Time{}, false
	}
	return w.deadline, true
}

func (w *Watchdog) stopLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.deadline = time.Time{}
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.timer == nil {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.deadline = time.Time{}
	cb := w.onExpire
	w.mu.Unlock()

	log.Debug().Str("component", "watchdog").Str("watchdog", w.name).Dur("timeout", w.timeout).Msg("watchdog expired")
	if cb != nil {
		cb()
	}
}
