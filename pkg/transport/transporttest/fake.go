// Package transporttest provides an in-memory Transport for dispatcher tests.
package transporttest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-go-golems/wizchat/pkg/transport"
)

// Fake records outbound frames and lets tests inject inbound ones synchronously.
type Fake struct {
	transport.Handlers

	mu         sync.Mutex
	ConnectErr error
	urls       []string
	sent       [][]byte
	connected  bool
	closes     int
}

var _ transport.Transport = &Fake{}

func New() *Fake { return &Fake{} }

func (f *Fake) Connect(_ context.Context, url string) error {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	if f.ConnectErr != nil {
		err := f.ConnectErr
		f.mu.Unlock()
		return err
	}
	if f.connected {
		f.mu.Unlock()
		return transport.ErrAlreadyConnected
	}
	f.connected = true
	f.mu.Unlock()
	f.EmitOpen()
	return nil
}

func (f *Fake) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return transport.ErrNotConnected
	}
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return nil
}

// Close marks the fake disconnected. Like the websocket transport it does not call the
// close handler; use Drop to simulate the reader noticing.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		f.closes++
	}
	f.connected = false
	return nil
}

// Deliver injects an inbound frame.
func (f *Fake) Deliver(frame string) {
	f.EmitMessage([]byte(frame))
}

// DeliverJSON marshals v and injects it.
func (f *Fake) DeliverJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	f.EmitMessage(b)
}

// Fail simulates a connection-level error followed by the close notification.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	f.EmitError(err)
	f.EmitClose(transport.CloseInfo{Code: 1006, Reason: err.Error()})
}

// Drop simulates the remote end closing the connection cleanly.
func (f *Fake) Drop() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	f.EmitClose(transport.CloseInfo{Code: 1000})
}

func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Closes counts Close calls made while connected.
func (f *Fake) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *Fake) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

// Sent returns the decoded outbound envelopes.
func (f *Fake) Sent() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.sent))
	for _, b := range f.sent {
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
