package webchat

import (
	"time"

	"github.com/pkg/errors"

	"github.com/go-go-golems/wizchat/pkg/clock"
	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/session"
	"github.com/go-go-golems/wizchat/pkg/store"
	"github.com/go-go-golems/wizchat/pkg/transport"
)

const (
	DefaultNoResponseTimeout = 30 * time.Second
	DefaultSilenceTimeout    = 15 * time.Second
	DefaultHistoryLimit      = 50
)

// ClientOption configures optional dependencies for a Client.
type ClientOption func(*Client) error

// WithURL sets the websocket endpoint. A "{session_id}" placeholder is substituted,
// otherwise the session id is appended as a path segment.
func WithURL(u string) ClientOption {
	return func(c *Client) error {
		if u == "" {
			return errors.New("url is empty")
		}
		c.baseURL = u
		return nil
	}
}

// WithTransport reuses one transport for every connection.
func WithTransport(t transport.Transport) ClientOption {
	return func(c *Client) error {
		if t == nil {
			return errors.New("transport is nil")
		}
		c.factory = func() transport.Transport { return t }
		return nil
	}
}

// WithTransportFactory builds a fresh transport per connection.
func WithTransportFactory(f transport.Factory) ClientOption {
	return func(c *Client) error {
		if f == nil {
			return errors.New("transport factory is nil")
		}
		c.factory = f
		return nil
	}
}

func WithClock(cl clock.Clock) ClientOption {
	return func(c *Client) error {
		if cl == nil {
			return errors.New("clock is nil")
		}
		c.rawClock = cl
		return nil
	}
}

func WithStore(st *store.Store) ClientOption {
	return func(c *Client) error {
		if st == nil {
			return errors.New("store is nil")
		}
		c.store = st
		return nil
	}
}

func WithIdentityStore(ids session.IdentityStore) ClientOption {
	return func(c *Client) error {
		if ids == nil {
			return errors.New("identity store is nil")
		}
		c.identity = ids
		return nil
	}
}

// WithHistoryLoader seeds the store from loader once, before the first connection.
func WithHistoryLoader(loader history.Loader) ClientOption {
	return func(c *Client) error {
		c.history = loader
		return nil
	}
}

func WithHistoryLimit(n int) ClientOption {
	return func(c *Client) error {
		if n <= 0 {
			return errors.Errorf("history limit must be positive, got %d", n)
		}
		c.historyLimit = n
		return nil
	}
}

// WithObserver adds an observer. Observers are called in registration order.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) error {
		if o == nil {
			return errors.New("observer is nil")
		}
		c.observers = append(c.observers, o)
		return nil
	}
}

func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// WithTimeouts sets the no-response and inter-delta silence timeouts. A value <= 0
// disables the corresponding watchdog.
func WithTimeouts(noResponse, silence time.Duration) ClientOption {
	return func(c *Client) error {
		c.noResponseTimeout = noResponse
		c.silenceTimeout = silence
		return nil
	}
}

func WithFrameInterval(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.frameInterval = d
		return nil
	}
}
