package webchat

import (
	"time"

	"github.com/go-go-golems/wizchat/pkg/scroll"
	"github.com/go-go-golems/wizchat/pkg/session"
	"github.com/go-go-golems/wizchat/pkg/store"
)

type EventKind string

const (
	EventStateChanged     EventKind = "state_changed"
	EventHistoryLoaded    EventKind = "history_loaded"
	EventHistoryCleared   EventKind = "history_cleared"
	EventMessageAppended  EventKind = "message_appended"
	EventStreamStarted    EventKind = "stream_started"
	EventStreamUpdated    EventKind = "stream_updated"
	EventStreamFinished   EventKind = "stream_finished"
	EventBusyChanged      EventKind = "busy_changed"
	EventCaptionChanged   EventKind = "caption_changed"
	EventInteractive      EventKind = "interactive_changed"
	EventDegraded         EventKind = "degraded"
	EventWatchdogExpired  EventKind = "watchdog_expired"
	EventTransportFailure EventKind = "transport_error"
)

// Event is a change notification emitted by the Client. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind      EventKind         `json:"kind"`
	SessionID string            `json:"session_id,omitempty"`
	MessageID string            `json:"message_id,omitempty"`
	Message   *store.Message    `json:"message,omitempty"`
	HTML      string            `json:"html,omitempty"`
	State     session.ConnState `json:"state"`
	Busy      bool              `json:"busy,omitempty"`
	Caption   string            `json:"caption,omitempty"`
	Flag      bool              `json:"flag,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
	Count     int               `json:"count,omitempty"`
	At        time.Time         `json:"at"`
}

// Observer receives client events. OnEvent runs while the client mutex is held.
type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// Observers fans an event out to several observers in registration order.
type Observers []Observer

func (o Observers) OnEvent(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.OnEvent(ev)
		}
	}
}

// ApplyToScroll maps a client event onto the scroll-follow controller.
func ApplyToScroll(ctl *scroll.Controller, ev Event) {
	if ctl == nil {
		return
	}
	switch ev.Kind {
	case EventHistoryLoaded:
		ctl.InitialLoad()
	case EventHistoryCleared:
		ctl.ResetSession()
	case EventStreamStarted:
		ctl.OnStreamStart()
	case EventStreamUpdated:
		ctl.OnStreamUpdate()
	case EventStreamFinished:
		ctl.OnStreamEnd()
	case EventMessageAppended:
		if ev.Message != nil && (ev.Message.Type == store.TypeOption || ev.Message.Type == store.TypeError) {
			ctl.OnDiscreteMessage()
		}
	default:
	}
}

// ScrollObserver drives ctl directly from client events. Use it when the viewport may
// be touched from the client's goroutines; UIs with their own event loop should
// forward events and call ApplyToScroll there.
func ScrollObserver(ctl *scroll.Controller) Observer {
	return ObserverFunc(func(ev Event) { ApplyToScroll(ctl, ev) })
}
