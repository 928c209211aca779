// Package protocol defines the JSON envelopes exchanged with the chat backend. Every
// frame carries an `event` discriminator.
package protocol

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Inbound events, backend to client.
const (
	EventLoading      = "loading"
	EventTrigger      = "trigger"
	EventCallFunction = "call_function"
	EventDelta        = "delta"
	EventFinished     = "finished"
)

// Outbound events, client to backend.
const (
	EventText    = "text"
	EventWizard  = "wizard"
	EventImage   = "image"
	EventService = "service"
	EventCancel  = "cancel"
)

// ErrMalformed is the cause of every decode failure.
var ErrMalformed = errors.New("malformed frame")

// Inbound is a decoded backend frame.
type Inbound struct {
	Event string
	// Message is the text fragment of a delta.
	Message string
	// Label is the caption of a call_function frame.
	Label string
	// Payload holds the frame without its event key; trigger frames hand it over
	// as opaque metadata.
	Payload json.RawMessage
}

type inboundWire struct {
	Event   *string `json:"event"`
	Message *string `json:"message"`
	Lable   *string `json:"lable"`
	Label   *string `json:"label"`
}

// Decode parses one inbound frame. Errors wrap ErrMalformed.
func Decode(data []byte) (*Inbound, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "decode frame: %v", err)
	}
	if fields == nil {
		return nil, errors.Wrap(ErrMalformed, "decode frame: not an object")
	}
	var w inboundWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "decode frame fields: %v", err)
	}
	if w.Event == nil || strings.TrimSpace(*w.Event) == "" {
		return nil, errors.Wrap(ErrMalformed, "decode frame: missing event")
	}

	in := &Inbound{Event: *w.Event}
	if w.Message != nil {
		in.Message = *w.Message
	}
	switch {
	case w.Lable != nil:
		in.Label = *w.Lable
	case w.Label != nil:
		in.Label = *w.Label
	}
	if in.Event == EventDelta && w.Message == nil {
		return nil, errors.Wrap(ErrMalformed, "decode delta: missing message")
	}

	delete(fields, "event")
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "re-encode payload")
	}
	in.Payload = payload
	return in, nil
}

// TextRequest sends free text typed by the user.
type TextRequest struct {
	Event string `json:"event"`
	Text  string `json:"text"`
}

// WizardRequest starts a server-side wizard.
type WizardRequest struct {
	Event    string `json:"event"`
	WizardID string `json:"wizard_id"`
}

// ImageRequest uploads image references.
type ImageRequest struct {
	Event string   `json:"event"`
	Files []string `json:"files"`
}

// ServiceRequest answers an interactive option with service credentials.
type ServiceRequest struct {
	Event       string         `json:"event"`
	Name        string         `json:"name"`
	Credentials map[string]any `json:"credentials"`
}

// CancelRequest asks the backend to abandon the current turn.
type CancelRequest struct {
	Event string `json:"event"`
	Desc  string `json:"desc"`
}

func NewText(text string) TextRequest { return TextRequest{Event: EventText, Text: text} }

func NewWizard(id string) WizardRequest { return WizardRequest{Event: EventWizard, WizardID: id} }

func NewImage(files []string) ImageRequest {
	if files == nil {
		files = []string{}
	}
	return ImageRequest{Event: EventImage, Files: files}
}

func NewService(name string, credentials map[string]any) ServiceRequest {
	if credentials == nil {
		credentials = map[string]any{}
	}
	return ServiceRequest{Event: EventService, Name: name, Credentials: credentials}
}

func NewCancel(desc string) CancelRequest { return CancelRequest{Event: EventCancel, Desc: desc} }

// Encode marshals an outbound request.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	return b, nil
}
