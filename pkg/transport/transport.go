// Package transport abstracts the duplex connection to the chat backend so the
// dispatcher can be driven by a websocket in production and by a fake in tests.
package transport

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrAlreadyConnected = errors.New("transport already connected")
)

// Transport is a minimal duplex connection.
//
// Implementations deliver inbound frames one at a time, in arrival order, from a
// single goroutine. Close never invokes the close handler synchronously; the close
// notification arrives from the reader once the connection has wound down.
type Transport interface {
	Connect(ctx context.Context, url string) error
	Send(payload []byte) error
	Close() error

	OnOpen(fn func())
	OnMessage(fn func([]byte))
	OnClose(fn func(CloseInfo))
	OnError(fn func(error))
}

// Factory builds a fresh Transport for each connection attempt.
type Factory func() Transport
