package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wizchat/pkg/webchat"
)

// EventMsg carries a client event into the bubbletea loop.
type EventMsg webchat.Event

// Bridge is a webchat.Observer queueing events for the UI. It never blocks the
// client: when the queue is full, stream updates are dropped (the view re-reads the
// store anyway) and other events are counted as lost.
type Bridge struct {
	ch chan webchat.Event
}

var _ webchat.Observer = &Bridge{}

func NewBridge(buffer int) *Bridge {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Bridge{ch: make(chan webchat.Event, buffer)}
}

func (b *Bridge) OnEvent(ev webchat.Event) {
	select {
	case b.ch <- ev:
	default:
		if ev.Kind != webchat.EventStreamUpdated {
			log.Warn().Str("component", "ui").Str("kind", string(ev.Kind)).Msg("ui event queue full, event lost")
		}
	}
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-b.ch
		if !ok {
			return nil
		}
		return EventMsg(ev)
	}
}
