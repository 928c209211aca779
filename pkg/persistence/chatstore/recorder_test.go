package chatstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/clock"
	"github.com/go-go-golems/wizchat/pkg/session"
	"github.com/go-go-golems/wizchat/pkg/transport/transporttest"
	"github.com/go-go-golems/wizchat/pkg/webchat"
)

func TestRecorder_RecordsTurnAndRestoresIt(t *testing.T) {
	transcript := NewInMemoryTranscriptStore(0)
	ids := session.NewMemoryIdentityStore()
	tr := transporttest.New()

	c, err := webchat.New(
		webchat.WithURL("ws://chat.test/ws/{session_id}"),
		webchat.WithTransport(tr),
		webchat.WithClock(clock.NewFake(time.Time{})),
		webchat.WithIdentityStore(ids),
		webchat.WithObserver(NewRecorder(transcript)),
	)
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.SendText("hello"))
	tr.DeliverJSON(map[string]any{"event": "delta", "message": "Hi there"})
	tr.DeliverJSON(map[string]any{"event": "finished"})
	require.NoError(t, c.Close())

	recs, err := transcript.List(context.Background(), c.SessionID(), 0, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "Hi there", recs[0].Body)
	require.Equal(t, "hello", recs[1].Body)

	// a new client on the same identity seeds the turn back from the transcript
	restored, err := webchat.New(
		webchat.WithURL("ws://chat.test/ws/{session_id}"),
		webchat.WithTransport(transporttest.New()),
		webchat.WithClock(clock.NewFake(time.Time{})),
		webchat.WithIdentityStore(ids),
		webchat.WithHistoryLoader(&Loader{Store: transcript}),
	)
	require.NoError(t, err)
	require.NoError(t, restored.Connect(context.Background()))
	msgs := restored.Store().Snapshot()
	require.Len(t, msgs, 2)
	require.Equal(t, "hello", msgs[0].Body)
	require.Equal(t, "Hi there", msgs[1].Body)
}

func TestRecorder_ClearDeletesSessionAndSkipsErrors(t *testing.T) {
	transcript := NewInMemoryTranscriptStore(0)
	tr := transporttest.New()
	c, err := webchat.New(
		webchat.WithURL("ws://chat.test/ws/{session_id}"),
		webchat.WithTransport(tr),
		webchat.WithClock(clock.NewFake(time.Time{})),
		webchat.WithObserver(NewRecorder(transcript)),
	)
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.SendText("hello"))

	tr.Fail(context.DeadlineExceeded)
	recs, err := transcript.List(context.Background(), c.SessionID(), 0, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "hello", recs[0].Body)

	c.ClearHistory()
	recs, err = transcript.List(context.Background(), c.SessionID(), 0, 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}
