package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Websocket is a Transport backed by gorilla/websocket.
type Websocket struct {
	Handlers

	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	pingInterval     time.Duration
	pongTimeout      time.Duration
	header           http.Header

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool

	writeMu sync.Mutex
}

var _ Transport = &Websocket{}

type WebsocketOption func(*Websocket)

func WithHandshakeTimeout(d time.Duration) WebsocketOption {
	return func(w *Websocket) { w.handshakeTimeout = d }
}

func WithWriteTimeout(d time.Duration) WebsocketOption {
	return func(w *Websocket) { w.writeTimeout = d }
}

// WithKeepalive enables ping frames every interval; the connection is considered dead
// when no pong arrives within pongTimeout.
func WithKeepalive(interval, pongTimeout time.Duration) WebsocketOption {
	return func(w *Websocket) {
		w.pingInterval = interval
		w.pongTimeout = pongTimeout
	}
}

func WithHeader(h http.Header) WebsocketOption {
	return func(w *Websocket) { w.header = h }
}

func NewWebsocket(opts ...WebsocketOption) *Websocket {
	w := &Websocket{
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewWebsocketFactory returns a Factory producing websocket transports with opts.
func NewWebsocketFactory(opts ...WebsocketOption) Factory {
	return func() Transport { return NewWebsocket(opts...) }
}

func (w *Websocket) Connect(ctx context.Context, url string) error {
	w.mu.Lock()
	if w.conn != nil {
		w.mu.Unlock()
		return ErrAlreadyConnected
	}
	w.mu.Unlock()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: w.handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, w.header)
	if err != nil {
		return errors.Wrapf(err, "dial %s", url)
	}

	w.mu.Lock()
	w.conn = conn
	w.closing = false
	w.mu.Unlock()

	if w.pongTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(w.pongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(w.pongTimeout))
		})
	}

	log.Debug().Str("component", "transport").Str("url", url).Msg("websocket connected")
	w.EmitOpen()

	done := make(chan struct{})
	go w.readLoop(conn, done)
	if w.pingInterval > 0 {
		go w.pingLoop(conn, done)
	}
	return nil
}

func (w *Websocket) Send(payload []byte) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrap(err, "websocket write")
	}
	return nil
}

// Close sends a normal-closure frame and tears the connection down. The close
// handler fires later from the reader goroutine.
func (w *Websocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	if conn == nil {
		w.mu.Unlock()
		return nil
	}
	w.closing = true
	w.mu.Unlock()

	w.writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	w.writeMu.Unlock()
	return conn.Close()
}

func (w *Websocket) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err == nil {
			w.EmitMessage(data)
			continue
		}

		w.mu.Lock()
		byUs := w.closing
		if w.conn == conn {
			w.conn = nil
			w.closing = false
		}
		w.mu.Unlock()

		info := CloseInfo{Code: websocket.CloseAbnormalClosure, Reason: err.Error()}
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			info = CloseInfo{Code: ce.Code, Reason: ce.Text}
		}
		expected := byUs || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
		if !expected {
			log.Warn().Err(err).Str("component", "transport").Msg("websocket read failed")
			w.EmitError(errors.Wrap(err, "websocket read"))
		}
		w.EmitClose(info)
		return
	}
}

func (w *Websocket) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.writeTimeout))
			w.writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Str("component", "transport").Msg("websocket ping failed")
				return
			}
		}
	}
}
