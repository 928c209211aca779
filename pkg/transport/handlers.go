package transport

import "sync"

// CloseInfo describes why a connection ended.
type CloseInfo struct {
	Code   int
	Reason string
}

// Handlers is a single-slot subscription table: one handler per lifecycle event.
// Registering a handler replaces the previous one for that event; nothing is queued.
type Handlers struct {
	mu      sync.RWMutex
	open    func()
	message func([]byte)
	close   func(CloseInfo)
	err     func(error)
}

func (h *Handlers) OnOpen(fn func()) {
	h.mu.Lock()
	h.open = fn
	h.mu.Unlock()
}

func (h *Handlers) OnMessage(fn func([]byte)) {
	h.mu.Lock()
	h.message = fn
	h.mu.Unlock()
}

func (h *Handlers) OnClose(fn func(CloseInfo)) {
	h.mu.Lock()
	h.close = fn
	h.mu.Unlock()
}

func (h *Handlers) OnError(fn func(error)) {
	h.mu.Lock()
	h.err = fn
	h.mu.Unlock()
}

// EmitOpen invokes the registered open handler, if any. Handlers are called without
// holding the table lock so they may re-register.
func (h *Handlers) EmitOpen() {
	h.mu.RLock()
	fn := h.open
	h.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (h *Handlers) EmitMessage(data []byte) {
	h.mu.RLock()
	fn := h.message
	h.mu.RUnlock()
	if fn != nil {
		fn(data)
	}
}

func (h *Handlers) EmitClose(info CloseInfo) {
	h.mu.RLock()
	fn := h.close
	h.mu.RUnlock()
	if fn != nil {
		fn(info)
	}
}

func (h *Handlers) EmitError(err error) {
	h.mu.RLock()
	fn := h.err
	h.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}
