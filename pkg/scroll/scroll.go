// Package scroll keeps a message viewport pinned to the newest content while a reply
// streams in, without fighting a user who scrolled away to read something.
package scroll

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wizchat/pkg/clock"
)

const (
	DefaultThreshold = 3
	DefaultDebounce  = 150 * time.Millisecond
)

// Viewport is the scrollable surface the controller drives. Distances are in whatever
// unit the surface uses (lines for a terminal, pixels for a browser).
type Viewport interface {
	DistanceFromBottom() int
	ScrollToBottom(animated bool)
	ScrollToTop()
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithThreshold(n int) Option {
	return func(ctl *Controller) { ctl.threshold = n }
}

func WithDebounce(d time.Duration) Option {
	return func(ctl *Controller) { ctl.debounce = d }
}

// Controller is the scroll-follow state machine. All methods are safe for concurrent
// use; viewport calls are made while holding the controller lock.
type Controller struct {
	mu        sync.Mutex
	vp        Viewport
	clock     clock.Clock
	threshold int
	debounce  time.Duration

	autoFollow      bool
	streaming       bool
	userScrolling   bool
	initialLoadDone bool

	scrollTimer clock.Timer
	scrollGen   uint64
}

func New(vp Viewport, opts ...Option) *Controller {
	c := &Controller{
		vp:         vp,
		clock:      clock.Real(),
		threshold:  DefaultThreshold,
		debounce:   DefaultDebounce,
		autoFollow: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) nearBottomLocked() bool {
	return c.vp.DistanceFromBottom() <= c.threshold
}

// OnUserScroll records a user-initiated scroll. Follow disengages when the user ends up
// beyond the threshold and re-engages once they come back within it.
func (c *Controller) OnUserScroll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userScrolling = true
	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
	}
	c.scrollGen++
	gen := c.scrollGen
	c.scrollTimer = c.clock.AfterFunc(c.debounce, func() { c.endUserScroll(gen) })

	near := c.nearBottomLocked()
	if c.autoFollow != near {
		log.Debug().Str("component", "scroll").Bool("follow", near).Msg("auto-follow changed by user scroll")
	}
	c.autoFollow = near
}

func (c *Controller) endUserScroll(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.scrollGen {
		return
	}
	c.userScrolling = false
	c.scrollTimer = nil
}

func (c *Controller) UserScrolling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userScrolling
}

func (c *Controller) AutoFollow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoFollow
}

func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

func (c *Controller) OnStreamStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = true
	if c.nearBottomLocked() {
		c.autoFollow = true
	}
}

// OnStreamUpdate follows the growing reply if the viewport was already near the bottom
// and the user is not touching it. It reports whether a scroll was issued.
func (c *Controller) OnStreamUpdate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.autoFollow || c.userScrolling || !c.nearBottomLocked() {
		return false
	}
	c.vp.ScrollToBottom(true)
	return true
}

// OnDiscreteMessage jumps to the bottom regardless of follow state. Used for option and
// error messages that need the user's attention.
func (c *Controller) OnDiscreteMessage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoFollow = true
	c.vp.ScrollToBottom(false)
}

func (c *Controller) OnStreamEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = false
	c.autoFollow = true
	c.vp.ScrollToBottom(false)
}

// InitialLoad runs the jump-to-top then animate-to-bottom sequence once per session.
// Later calls return false and leave the viewport alone.
func (c *Controller) InitialLoad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialLoadDone {
		return false
	}
	c.initialLoadDone = true
	c.vp.ScrollToTop()
	c.vp.ScrollToBottom(true)
	return true
}

// ResetSession forgets per-session state so the next InitialLoad runs again.
func (c *Controller) ResetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
		c.scrollTimer = nil
	}
	c.scrollGen++
	c.userScrolling = false
	c.streaming = false
	c.autoFollow = true
	c.initialLoadDone = false
}
