package store

import "encoding/json"

// Type classifies how a message is rendered.
type Type string

const (
	TypeText     Type = "text"
	TypeQuestion Type = "question"
	TypeOption   Type = "option"
	TypeImage    Type = "image"
	TypeError    Type = "error"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat entity. Body may hold partial HTML while the message is
// being streamed.
type Message struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Role      Role            `json:"role"`
	Body      string          `json:"body"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// Patch lists the fields to overwrite on an existing message. Nil fields are left
// untouched.
type Patch struct {
	Body     *string
	Metadata json.RawMessage
	Type     *Type
}

func (m Message) clone() Message {
	if m.Metadata != nil {
		md := make(json.RawMessage, len(m.Metadata))
		copy(md, m.Metadata)
		m.Metadata = md
	}
	return m
}
