// Package clock abstracts wall time and one-shot timers so that watchdogs, frame
// schedulers and debounce windows can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a handle on a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the timer already
	// fired or was stopped.
	Stop() bool
}

// Clock is the subset of the time package used by the chat engine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type serialized struct {
	Clock
	l sync.Locker
}

// Serialized wraps c so that every AfterFunc callback runs while holding l.
// Components that share l with their owner can then check generation counters and
// cancellation flags without racing the owner.
func Serialized(c Clock, l sync.Locker) Clock {
	if c == nil {
		c = Real()
	}
	return &serialized{Clock: c, l: l}
}

func (s *serialized) AfterFunc(d time.Duration, f func()) Timer {
	return s.Clock.AfterFunc(d, func() {
		s.l.Lock()
		defer s.l.Unlock()
		f()
	})
}
