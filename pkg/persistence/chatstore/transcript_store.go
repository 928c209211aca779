// Package chatstore keeps a local transcript of chat sessions so a restarted client
// can seed its message store without a history endpoint.
package chatstore

import (
	"context"

	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/store"
)

// TranscriptStore persists messages per session in first-seen order.
//
// Upsert of an already known message id overwrites its content but keeps its
// position. List returns records newest first, matching the history loader contract.
type TranscriptStore interface {
	Upsert(ctx context.Context, sessionID string, msg store.Message) error
	List(ctx context.Context, sessionID string, offset, limit int) ([]history.Record, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Close() error
}

// Loader serves a transcript as chat history.
type Loader struct {
	Store TranscriptStore
}

var _ history.Loader = &Loader{}

func (l *Loader) Load(ctx context.Context, sessionID string, offset, limit int) ([]history.Record, error) {
	return l.Store.List(ctx, sessionID, offset, limit)
}

func toRecord(msg store.Message) history.Record {
	return history.Record{
		ID:        msg.ID,
		Type:      string(msg.Type),
		Role:      string(msg.Role),
		Body:      msg.Body,
		Metadata:  msg.Metadata,
		CreatedAt: msg.CreatedAt,
	}
}
