package webchat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wizchat/pkg/assembler"
	"github.com/go-go-golems/wizchat/pkg/clock"
	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/protocol"
	"github.com/go-go-golems/wizchat/pkg/session"
	"github.com/go-go-golems/wizchat/pkg/store"
	"github.com/go-go-golems/wizchat/pkg/transport"
	"github.com/go-go-golems/wizchat/pkg/watchdog"
)

// Client owns one session: its connection, message store, assembler and watchdogs.
type Client struct {
	mu sync.Mutex

	baseURL           string
	factory           transport.Factory
	rawClock          clock.Clock
	clock             clock.Clock
	store             *store.Store
	identity          session.IdentityStore
	history           history.Loader
	historyLimit      int
	observers         Observers
	metrics           *Metrics
	noResponseTimeout time.Duration
	silenceTimeout    time.Duration
	frameInterval     time.Duration

	// app-level lifecycle hooks, one slot each
	hooks transport.Handlers

	sessionID     string
	historySeeded bool
	tr            transport.Transport
	conn          uint64
	torn          bool
	state         session.ConnState
	degraded      bool
	busy          bool
	interactive   bool
	caption       string
	streamingID   string

	asm     *assembler.Assembler
	initial *watchdog.Watchdog
	silence *watchdog.Watchdog
}

func New(opts ...ClientOption) (*Client, error) {
	c := &Client{
		rawClock:          clock.Real(),
		historyLimit:      DefaultHistoryLimit,
		noResponseTimeout: DefaultNoResponseTimeout,
		silenceTimeout:    DefaultSilenceTimeout,
		frameInterval:     assembler.DefaultFrameInterval,
		state:             session.StateClosed,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "configure chat client")
		}
	}
	if c.factory == nil {
		c.factory = transport.NewWebsocketFactory()
	}
	if c.store == nil {
		c.store = store.New(store.WithNow(c.rawClock.Now))
	}
	if c.identity == nil {
		c.identity = session.NewMemoryIdentityStore()
	}

	c.clock = clock.Serialized(c.rawClock, &c.mu)
	c.asm = assembler.New(assembler.NewFrameScheduler(c.clock, c.frameInterval))
	c.asm.OnUpdate(c.onAssemblerUpdate)
	c.initial = watchdog.New("initial_response", c.noResponseTimeout, c.clock, c.onNoResponse)
	c.silence = watchdog.New("inter_delta", c.silenceTimeout, c.clock, c.onSilence)
	return c, nil
}

// OnOpen registers the application's open hook, replacing any previous one.
func (c *Client) OnOpen(fn func()) { c.hooks.OnOpen(fn) }

func (c *Client) OnMessage(fn func([]byte)) { c.hooks.OnMessage(fn) }

func (c *Client) OnClose(fn func(transport.CloseInfo)) { c.hooks.OnClose(fn) }

func (c *Client) OnError(fn func(error)) { c.hooks.OnError(fn) }

func (c *Client) Store() *store.Store { return c.store }

func (c *Client) State() session.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Client) Interactive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interactive
}

func (c *Client) Caption() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caption
}

// StreamingID returns the id of the assistant message currently being streamed, or "".
func (c *Client) StreamingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamingID
}

// Connect resolves the session identity, seeds history on first use and opens the
// connection. It is a no-op while a connection is open or being opened. A Close that
// lands while Connect is in flight makes it return ErrConnectAborted.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == session.StateOpen || c.state == session.StateConnecting {
		c.mu.Unlock()
		return nil
	}
	// an errored connection whose close has not arrived yet
	stale := c.detachLocked("reconnect")
	c.setStateLocked(session.StateConnecting)
	attempt := c.conn
	sessionID := c.sessionID
	seed := !c.historySeeded && c.history != nil
	c.mu.Unlock()
	if stale != nil {
		_ = stale.Close()
	}

	fail := func(err error) error {
		c.mu.Lock()
		if c.state == session.StateConnecting {
			c.setStateLocked(session.StateErrored)
		}
		c.mu.Unlock()
		return err
	}

	if sessionID == "" {
		id, err := session.EnsureIdentity(ctx, c.identity)
		if err != nil {
			return fail(err)
		}
		sessionID = id
	}
	url, err := session.BuildURL(c.baseURL, sessionID)
	if err != nil {
		return fail(err)
	}

	if seed {
		added, err := history.Seed(ctx, c.history, c.store, sessionID, c.historyLimit)
		if err != nil {
			log.Warn().Err(err).Str("component", "webchat").Str("session_id", sessionID).Msg("history load failed")
		} else {
			c.mu.Lock()
			c.historySeeded = true
			c.notifyLocked(Event{Kind: EventHistoryLoaded, Count: added})
			c.mu.Unlock()
		}
	}

	tr := c.factory()
	c.mu.Lock()
	c.sessionID = sessionID
	if c.conn != attempt || c.state != session.StateConnecting {
		c.mu.Unlock()
		return ErrConnectAborted
	}
	c.conn++
	gen := c.conn
	c.tr = tr
	c.torn = false
	c.mu.Unlock()

	tr.OnOpen(func() { c.handleOpen(gen) })
	tr.OnMessage(func(data []byte) { c.handleMessage(gen, data) })
	tr.OnClose(func(info transport.CloseInfo) { c.handleClose(gen, info) })
	tr.OnError(func(err error) { c.handleError(gen, err) })

	log.Debug().Str("component", "webchat").Str("session_id", sessionID).Str("url", url).Msg("connecting")
	if err := tr.Connect(ctx, url); err != nil {
		c.mu.Lock()
		if gen == c.conn {
			c.tr = nil
			c.setStateLocked(session.StateErrored)
		}
		c.mu.Unlock()
		return errors.Wrap(err, "connect chat transport")
	}

	c.mu.Lock()
	aborted := gen != c.conn
	c.mu.Unlock()
	if aborted {
		_ = tr.Close()
		return ErrConnectAborted
	}
	return nil
}

// Reconnect drops the current connection, if any, and opens a new one with the same
// session identity. It clears the degraded flag.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	tr := c.detachLocked("reconnect")
	c.setDegradedLocked(false)
	c.mu.Unlock()
	if tr != nil {
		if err := tr.Close(); err != nil {
			log.Debug().Err(err).Str("component", "webchat").Msg("close before reconnect failed")
		}
	}
	return c.Connect(ctx)
}

// Close finalizes any partial reply and closes the connection. Calling it again, or
// on a client that never connected, does nothing.
func (c *Client) Close() error {
	c.mu.Lock()
	tr := c.detachLocked("client_close")
	if tr == nil && c.state == session.StateConnecting {
		// a Connect in flight sees the bumped generation and gives up
		c.conn++
		c.setStateLocked(session.StateClosed)
	}
	c.mu.Unlock()
	if tr == nil {
		return nil
	}
	return errors.Wrap(tr.Close(), "close chat transport")
}

// SendText appends the user's message and transmits it.
func (c *Client) SendText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interactive {
		return ErrInteractive
	}
	if err := c.checkSendableLocked(); err != nil {
		return err
	}
	c.appendLocked(store.Message{Type: store.TypeText, Role: store.RoleUser, Body: text})
	return c.transmitLocked(protocol.EventText, protocol.NewText(text), true)
}

// SendWizard starts the wizard with the given id. It answers a pending option message.
func (c *Client) SendWizard(wizardID string) error {
	if strings.TrimSpace(wizardID) == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkSendableLocked(); err != nil {
		return err
	}
	c.setInteractiveLocked(false)
	return c.transmitLocked(protocol.EventWizard, protocol.NewWizard(wizardID), true)
}

// SendImage appends a user image message listing files and transmits the upload event.
func (c *Client) SendImage(files []string) error {
	if len(files) == 0 {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkSendableLocked(); err != nil {
		return err
	}
	meta, err := json.Marshal(map[string]any{"files": files})
	if err != nil {
		return errors.Wrap(err, "encode image metadata")
	}
	c.appendLocked(store.Message{Type: store.TypeImage, Role: store.RoleUser, Metadata: meta})
	return c.transmitLocked(protocol.EventImage, protocol.NewImage(files), true)
}

// SendService submits service credentials chosen from an option message.
func (c *Client) SendService(name string, credentials map[string]any) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkSendableLocked(); err != nil {
		return err
	}
	c.setInteractiveLocked(false)
	return c.transmitLocked(protocol.EventService, protocol.NewService(name, credentials), true)
}

// Cancel asks the backend to abandon the current operation. Local state is left alone;
// the backend answers with finished.
func (c *Client) Cancel(desc string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkSendableLocked(); err != nil {
		return err
	}
	return c.transmitLocked(protocol.EventCancel, protocol.NewCancel(desc), false)
}

// DismissInteraction leaves interactive mode without answering the option message.
func (c *Client) DismissInteraction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setInteractiveLocked(false)
}

// ClearHistory finalizes any partial reply and empties the store. Observers get
// EventHistoryCleared so they can drop per-session state.
func (c *Client) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishTurnLocked("history_cleared")
	c.store.Reset()
	c.setInteractiveLocked(false)
	c.notifyLocked(Event{Kind: EventHistoryCleared})
}

func (c *Client) checkSendableLocked() error {
	if c.degraded || c.state != session.StateOpen || c.tr == nil {
		return ErrUnavailable
	}
	return nil
}

// transmitLocked writes while holding the client mutex, so a stalled peer holds up
// inbound dispatch and timers for at most the transport's write timeout.
func (c *Client) transmitLocked(event string, v any, armInitial bool) error {
	payload, err := protocol.Encode(v)
	if err != nil {
		return err
	}
	if err := c.tr.Send(payload); err != nil {
		return errors.Wrapf(err, "send %s", event)
	}
	c.metrics.incSend(event)
	if armInitial {
		c.initial.Arm()
	}
	log.Debug().Str("component", "webchat").Str("session_id", c.sessionID).Str("event", event).Msg("sent")
	return nil
}

func (c *Client) handleOpen(gen uint64) {
	c.mu.Lock()
	if gen != c.conn {
		c.mu.Unlock()
		return
	}
	c.setDegradedLocked(false)
	c.setStateLocked(session.StateOpen)
	c.metrics.incConnect()
	sessionID := c.sessionID
	c.mu.Unlock()

	log.Info().Str("component", "webchat").Str("session_id", sessionID).Msg("connection open")
	c.hooks.EmitOpen()
}

func (c *Client) handleMessage(gen uint64, data []byte) {
	c.mu.Lock()
	if gen != c.conn {
		c.mu.Unlock()
		return
	}
	c.dispatchLocked(data)
	c.mu.Unlock()
	c.hooks.EmitMessage(data)
}

func (c *Client) handleError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.conn {
		c.mu.Unlock()
		return
	}
	terr := &TransportError{Err: err}
	c.metrics.incTransportError()
	log.Warn().Err(err).Str("component", "webchat").Str("session_id", c.sessionID).Msg("transport error")
	if !c.torn {
		c.torn = true
		c.finishTurnLocked("transport_error")
		c.appendLocked(store.Message{Type: store.TypeError, Role: store.RoleAssistant, Body: terr.Error()})
		c.notifyLocked(Event{Kind: EventTransportFailure, Error: terr.Error()})
	}
	c.setStateLocked(session.StateErrored)
	c.mu.Unlock()
	c.hooks.EmitError(terr)
}

func (c *Client) handleClose(gen uint64, info transport.CloseInfo) {
	c.mu.Lock()
	if gen != c.conn {
		c.mu.Unlock()
		return
	}
	if !c.torn {
		c.torn = true
		c.finishTurnLocked("closed")
	}
	c.tr = nil
	c.conn++
	if c.state != session.StateErrored {
		c.setStateLocked(session.StateClosed)
	}
	c.mu.Unlock()

	log.Info().Str("component", "webchat").Int("code", info.Code).Str("reason", info.Reason).Msg("connection closed")
	c.hooks.EmitClose(info)
}

// detachLocked forgets the current transport so its late callbacks are ignored. The
// caller closes the returned transport.
func (c *Client) detachLocked(reason string) transport.Transport {
	tr := c.tr
	if tr == nil {
		return nil
	}
	c.tr = nil
	c.conn++
	c.torn = true
	c.finishTurnLocked(reason)
	c.setStateLocked(session.StateClosed)
	return tr
}

func (c *Client) dispatchLocked(data []byte) {
	in, err := protocol.Decode(data)
	if err != nil {
		perr := &ProtocolParseError{Raw: data, Err: err}
		c.metrics.incParseError()
		log.Warn().Err(perr).Str("component", "webchat").Str("session_id", c.sessionID).Msg("ignoring inbound frame")
		return
	}

	switch in.Event {
	case protocol.EventLoading:
		c.initial.Cancel()
		c.setBusyLocked(true)

	case protocol.EventTrigger:
		c.initial.Cancel()
		c.appendLocked(store.Message{
			Type:     store.TypeOption,
			Role:     store.RoleAssistant,
			Metadata: in.Payload,
		})
		c.setInteractiveLocked(true)

	case protocol.EventCallFunction:
		c.setCaptionLocked(in.Label)

	case protocol.EventDelta:
		c.handleDeltaLocked(in.Message)

	case protocol.EventFinished:
		c.finishTurnLocked("finished")

	default:
		log.Debug().Str("component", "webchat").Str("event", in.Event).Msg("ignoring unknown event")
	}
}

func (c *Client) handleDeltaLocked(fragment string) {
	if c.streamingID == "" {
		c.streamingID = c.appendLocked(store.Message{Type: store.TypeText, Role: store.RoleAssistant})
		c.notifyLocked(Event{Kind: EventStreamStarted, MessageID: c.streamingID})
	}
	c.metrics.incDelta()
	c.asm.ProcessDelta(fragment)
	c.initial.Cancel()
	c.silence.Arm()
}

// finishTurnLocked commits the assembler's output into the streaming message and
// resets the pipeline. It is safe to call when nothing is streaming.
func (c *Client) finishTurnLocked(reason string) {
	c.initial.Cancel()
	c.silence.Cancel()
	if id := c.streamingID; id != "" {
		c.asm.Flush()
		final := c.asm.FinalHTML()
		c.store.Patch(id, store.Patch{Body: &final})
		c.streamingID = ""
		c.notifyLocked(Event{Kind: EventStreamFinished, MessageID: id, HTML: final, Reason: reason})
		log.Debug().Str("component", "webchat").Str("message_id", id).Str("reason", reason).Int("bytes", len(final)).Msg("turn finished")
	}
	c.asm.Reset()
	c.setBusyLocked(false)
	c.setCaptionLocked("")
}

// onAssemblerUpdate runs under the client mutex: either from a frame timer through the
// serialized clock or from Flush inside finishTurnLocked.
func (c *Client) onAssemblerUpdate(html string) {
	id := c.streamingID
	if id == "" {
		return
	}
	c.store.Patch(id, store.Patch{Body: &html})
	c.metrics.incFrame()
	c.notifyLocked(Event{Kind: EventStreamUpdated, MessageID: id, HTML: html})
}

func (c *Client) onSilence() {
	err := &StallTimeout{After: c.silenceTimeout}
	c.metrics.incExpiration(c.silence.Name())
	log.Info().Err(err).Str("component", "webchat").Str("session_id", c.sessionID).Msg("finalizing stalled stream")
	c.notifyLocked(Event{Kind: EventWatchdogExpired, Reason: c.silence.Name(), Error: err.Error()})
	c.finishTurnLocked("stalled")
}

func (c *Client) onNoResponse() {
	err := &NoResponseTimeout{After: c.noResponseTimeout}
	c.metrics.incExpiration(c.initial.Name())
	log.Warn().Err(err).Str("component", "webchat").Str("session_id", c.sessionID).Msg("backend did not respond, disconnecting")
	c.notifyLocked(Event{Kind: EventWatchdogExpired, Reason: c.initial.Name(), Error: err.Error()})

	c.finishTurnLocked("no_response")
	c.setDegradedLocked(true)
	tr := c.detachLocked("no_response")
	if tr == nil {
		return
	}
	// transports never invoke handlers synchronously from Close
	if cerr := tr.Close(); cerr != nil {
		log.Debug().Err(cerr).Str("component", "webchat").Msg("close after no-response timeout failed")
	}
}

func (c *Client) appendLocked(msg store.Message) string {
	id := c.store.Append(msg)
	stored, _ := c.store.Get(id)
	c.notifyLocked(Event{Kind: EventMessageAppended, MessageID: id, Message: &stored})
	return id
}

func (c *Client) setStateLocked(s session.ConnState) {
	if c.state == s {
		return
	}
	c.state = s
	c.notifyLocked(Event{Kind: EventStateChanged})
}

func (c *Client) setBusyLocked(b bool) {
	if c.busy == b {
		return
	}
	c.busy = b
	c.notifyLocked(Event{Kind: EventBusyChanged, Flag: b})
}

func (c *Client) setCaptionLocked(caption string) {
	if c.caption == caption {
		return
	}
	c.caption = caption
	c.notifyLocked(Event{Kind: EventCaptionChanged, Caption: caption})
}

func (c *Client) setInteractiveLocked(b bool) {
	if c.interactive == b {
		return
	}
	c.interactive = b
	c.notifyLocked(Event{Kind: EventInteractive, Flag: b})
}

func (c *Client) setDegradedLocked(b bool) {
	if c.degraded == b {
		return
	}
	c.degraded = b
	c.notifyLocked(Event{Kind: EventDegraded, Flag: b})
}

func (c *Client) notifyLocked(ev Event) {
	if len(c.observers) == 0 {
		return
	}
	ev.SessionID = c.sessionID
	ev.State = c.state
	ev.Busy = c.busy
	if ev.At.IsZero() {
		ev.At = c.rawClock.Now()
	}
	c.observers.OnEvent(ev)
}
