package assembler

import (
	"time"

	"github.com/go-go-golems/wizchat/pkg/clock"
)

// DefaultFrameInterval approximates one rendering frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler defers fn to the next rendering frame. The returned cancel func prevents
// fn from running if it has not run yet.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// FrameScheduler runs scheduled work one frame interval later on the given clock.
type FrameScheduler struct {
	clock    clock.Clock
	interval time.Duration
}

var _ Scheduler = &FrameScheduler{}

func NewFrameScheduler(c clock.Clock, interval time.Duration) *FrameScheduler {
	if c == nil {
		c = clock.Real()
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{clock: c, interval: interval}
}

func (s *FrameScheduler) Schedule(fn func()) func() {
	canceled := false
	t := s.clock.AfterFunc(s.interval, func() {
		if canceled {
			return
		}
		fn()
	})
	return func() {
		canceled = true
		t.Stop()
	}
}
