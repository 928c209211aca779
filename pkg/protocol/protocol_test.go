package protocol

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDecode_Events(t *testing.T) {
	in, err := Decode([]byte(`{"event":"delta","message":"<td>x"}`))
	require.NoError(t, err)
	require.Equal(t, EventDelta, in.Event)
	require.Equal(t, "<td>x", in.Message)

	in, err = Decode([]byte(`{"event":"call_function","lable":"Searching flights"}`))
	require.NoError(t, err)
	require.Equal(t, "Searching flights", in.Label)

	in, err = Decode([]byte(`{"event":"call_function","label":"fallback"}`))
	require.NoError(t, err)
	require.Equal(t, "fallback", in.Label)

	in, err = Decode([]byte(`{"event":"loading"}`))
	require.NoError(t, err)
	require.Equal(t, EventLoading, in.Event)
	require.JSONEq(t, `{}`, string(in.Payload))
}

func TestDecode_TriggerKeepsPayloadWithoutEvent(t *testing.T) {
	in, err := Decode([]byte(`{"event":"trigger","service":"jira","fields":[{"name":"token"}]}`))
	require.NoError(t, err)
	require.Equal(t, EventTrigger, in.Event)
	require.JSONEq(t, `{"service":"jira","fields":[{"name":"token"}]}`, string(in.Payload))
}

func TestDecode_Malformed(t *testing.T) {
	bad := []string{
		`not json`,
		`[]`,
		`null`,
		`{"message":"no event"}`,
		`{"event":""}`,
		`{"event":42}`,
		`{"event":"delta"}`,
	}
	for _, b := range bad {
		_, err := Decode([]byte(b))
		require.Error(t, err, b)
		require.True(t, errors.Is(err, ErrMalformed), b)
	}
}

func TestEncode_OutboundShapes(t *testing.T) {
	b, err := Encode(NewText("hello"))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"text","text":"hello"}`, string(b))

	b, err = Encode(NewWizard("w-1"))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"wizard","wizard_id":"w-1"}`, string(b))

	b, err = Encode(NewImage(nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"image","files":[]}`, string(b))

	b, err = Encode(NewService("jira", map[string]any{"token": "t"}))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"service","name":"jira","credentials":{"token":"t"}}`, string(b))

	b, err = Encode(NewCancel("user abort"))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"cancel","desc":"user abort"}`, string(b))
}
