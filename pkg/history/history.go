// Package history talks to the external history endpoint that seeds a session's
// message store before the first connect.
package history

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wizchat/pkg/store"
)

// Record is one prior message as returned by the history endpoint.
type Record struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Body      string          `json:"body"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// Loader returns prior records for a session, newest first.
type Loader interface {
	Load(ctx context.Context, sessionID string, offset, limit int) ([]Record, error)
}

// HTTPLoader fetches GET <BaseURL>?session_id=&offset=&limit=. The response is either
// a JSON array of records or an object with a "messages" array.
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client
}

var _ Loader = &HTTPLoader{}

func NewHTTPLoader(baseURL string, timeout time.Duration) *HTTPLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLoader{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

func (l *HTTPLoader) Load(ctx context.Context, sessionID string, offset, limit int) ([]Record, error) {
	u, err := url.Parse(l.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse history url %q", l.BaseURL)
	}
	q := u.Query()
	q.Set("session_id", sessionID)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build history request")
	}
	req.Header.Set("Accept", "application/json")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch history")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read history response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("history endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return decodeRecords(body)
}

func decodeRecords(body []byte) ([]Record, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var recs []Record
		if err := json.Unmarshal(body, &recs); err != nil {
			return nil, errors.Wrap(err, "decode history array")
		}
		return recs, nil
	}
	var wrapped struct {
		Messages []Record `json:"messages"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, errors.Wrap(err, "decode history object")
	}
	return wrapped.Messages, nil
}

// ToMessages converts newest-first records into display-ordered store messages.
func ToMessages(recs []Record) []store.Message {
	out := make([]store.Message, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		typ := store.Type(r.Type)
		if typ == "" {
			typ = store.TypeText
		}
		role := store.Role(r.Role)
		if role == "" {
			role = store.RoleAssistant
		}
		out = append(out, store.Message{
			ID:        r.ID,
			Type:      typ,
			Role:      role,
			Body:      r.Body,
			Metadata:  r.Metadata,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// Seed loads one page of history and appends it to st in display order.
func Seed(ctx context.Context, loader Loader, st *store.Store, sessionID string, limit int) (int, error) {
	if loader == nil || st == nil {
		return 0, nil
	}
	recs, err := loader.Load(ctx, sessionID, 0, limit)
	if err != nil {
		return 0, err
	}
	added := st.Seed(ToMessages(recs))
	log.Debug().Str("component", "history").Str("session_id", sessionID).Int("records", len(recs)).Int("added", added).Msg("seeded history")
	return added, nil
}

// StaticLoader serves fixed records; handy for tests and offline use.
type StaticLoader struct {
	Records []Record
	Err     error
	Calls   int
}

func (l *StaticLoader) Load(_ context.Context, _ string, offset, limit int) ([]Record, error) {
	l.Calls++
	if l.Err != nil {
		return nil, l.Err
	}
	if offset >= len(l.Records) {
		return nil, nil
	}
	end := len(l.Records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return l.Records[offset:end], nil
}
