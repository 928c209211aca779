// Package session manages the durable chat identity and the connection state of the
// current session.
package session

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by IdentityStore.Load when no identity was persisted yet.
var ErrNotFound = errors.New("session identity not found")

// IdentityStore persists the opaque session identity across reconnects and restarts.
type IdentityStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, id string) error
	Delete(ctx context.Context) error
	Close() error
}

// EnsureIdentity returns the persisted identity, creating and saving a new one the
// first time.
func EnsureIdentity(ctx context.Context, store IdentityStore) (string, error) {
	if store == nil {
		return "", errors.New("session: nil identity store")
	}
	id, err := store.Load(ctx)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", errors.Wrap(err, "load session identity")
	}
	id = uuid.NewString()
	if err := store.Save(ctx, id); err != nil {
		return "", errors.Wrap(err, "save session identity")
	}
	log.Info().Str("component", "session").Str("session_id", id).Msg("created session identity")
	return id, nil
}

// PlaceholderSessionID is replaced by the identity in handshake URL templates.
const PlaceholderSessionID = "{session_id}"

// BuildURL places the session identity into the handshake address. If base contains
// {session_id} it is substituted; otherwise the identity is appended as a path segment.
func BuildURL(base, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session: empty session id")
	}
	escaped := url.PathEscape(sessionID)
	if strings.Contains(base, PlaceholderSessionID) {
		base = strings.ReplaceAll(base, PlaceholderSessionID, escaped)
		if _, err := url.Parse(base); err != nil {
			return "", errors.Wrapf(err, "parse handshake url %q", base)
		}
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "parse handshake url %q", base)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("handshake url %q needs scheme and host", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + sessionID
	u.RawPath = ""
	return u.String(), nil
}

// ConnState is the logical state of the session's single connection.
type ConnState int

const (
	StateClosed ConnState = iota
	StateConnecting
	StateOpen
	StateErrored
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "connecting":
		*s = StateConnecting
	case "open":
		*s = StateOpen
	case "closed":
		*s = StateClosed
	case "errored":
		*s = StateErrored
	default:
		return errors.Errorf("unknown connection state %q", string(b))
	}
	return nil
}
