package webchat

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrUnavailable is returned by sends while the connection is not open or the
	// client is degraded after a no-response timeout.
	ErrUnavailable = errors.New("chat is unavailable")
	// ErrInteractive is returned by SendText while an option message awaits a choice.
	ErrInteractive  = errors.New("waiting for an option to be chosen")
	ErrEmptyMessage = errors.New("message is empty")
	// ErrConnectAborted is returned by Connect when Close ran before the dial finished.
	ErrConnectAborted = errors.New("connect aborted by close")
)

// TransportError is a connection-level failure. It becomes an inline error message and
// resets the streaming pipeline.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolParseError is an inbound frame that could not be decoded. It is logged and
// otherwise ignored.
type ProtocolParseError struct {
	Raw []byte
	Err error
}

func (e *ProtocolParseError) Error() string {
	return fmt.Sprintf("unparseable frame (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *ProtocolParseError) Unwrap() error { return e.Err }

// StallTimeout is reported when a stream goes silent between deltas. The partial reply
// is finalized as if the backend had finished.
type StallTimeout struct {
	After time.Duration
}

func (e *StallTimeout) Error() string {
	return fmt.Sprintf("stream stalled: no delta for %s", e.After)
}

// NoResponseTimeout is reported when nothing arrives after a send. The client degrades
// and disconnects.
type NoResponseTimeout struct {
	After time.Duration
}

func (e *NoResponseTimeout) Error() string {
	return fmt.Sprintf("no response within %s", e.After)
}
