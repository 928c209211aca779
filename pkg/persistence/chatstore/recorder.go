package chatstore

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wizchat/pkg/store"
	"github.com/go-go-golems/wizchat/pkg/webchat"
)

const recordTimeout = 2 * time.Second

// Recorder writes client events into a transcript. Appended messages are stored as
// they arrive, streamed replies once they are finished. Inline error messages are
// local to the running client and are not recorded.
type Recorder struct {
	Store TranscriptStore
}

var _ webchat.Observer = &Recorder{}

func NewRecorder(s TranscriptStore) *Recorder {
	return &Recorder{Store: s}
}

func (r *Recorder) OnEvent(ev webchat.Event) {
	if ev.SessionID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	var err error
	switch ev.Kind {
	case webchat.EventMessageAppended:
		if ev.Message == nil || ev.Message.Type == store.TypeError {
			return
		}
		err = r.Store.Upsert(ctx, ev.SessionID, *ev.Message)
	case webchat.EventStreamFinished:
		err = r.Store.Upsert(ctx, ev.SessionID, store.Message{
			ID:   ev.MessageID,
			Type: store.TypeText,
			Role: store.RoleAssistant,
			Body: ev.HTML,
		})
	case webchat.EventHistoryCleared:
		err = r.Store.DeleteSession(ctx, ev.SessionID)
	default:
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("component", "chatstore").Str("session_id", ev.SessionID).Str("event", string(ev.Kind)).Msg("failed to record transcript")
	}
}
