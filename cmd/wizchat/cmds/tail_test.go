package cmds

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/session"
	"github.com/go-go-golems/wizchat/pkg/webchat"
)

func TestPrintEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, printEvent(&buf, webchat.Event{Kind: webchat.EventStateChanged, SessionID: "s1", State: session.StateOpen, At: at}, false))
	require.NoError(t, printEvent(&buf, webchat.Event{Kind: webchat.EventWatchdogExpired, SessionID: "s1", Reason: "inter_delta", At: at}, false))
	require.Equal(t,
		"2024-05-01T12:00:00Z state_changed        session=s1 state=open\n"+
			"2024-05-01T12:00:00Z watchdog_expired     session=s1 watchdog=inter_delta\n",
		buf.String())
}

func TestPrintEvent_JSON(t *testing.T) {
	var buf bytes.Buffer
	ev := webchat.Event{Kind: webchat.EventStreamFinished, SessionID: "s1", MessageID: "m1", HTML: "<p>x</p>", State: session.StateOpen}
	require.NoError(t, printEvent(&buf, ev, true))

	var back webchat.Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	require.Equal(t, ev.MessageID, back.MessageID)
	require.Equal(t, session.StateOpen, back.State)
}
