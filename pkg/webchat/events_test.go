package webchat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/clock"
	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/scroll"
)

type recordingViewport struct {
	distance int
	calls    []string
}

func (v *recordingViewport) DistanceFromBottom() int { return v.distance }

func (v *recordingViewport) ScrollToBottom(animated bool) {
	if animated {
		v.calls = append(v.calls, "bottom-animated")
	} else {
		v.calls = append(v.calls, "bottom")
	}
}

func (v *recordingViewport) ScrollToTop() { v.calls = append(v.calls, "top") }

func TestScrollObserver_FollowsClientEvents(t *testing.T) {
	vp := &recordingViewport{}
	scrollClock := clock.NewFake(time.Time{})
	ctl := scroll.New(vp, scroll.WithClock(scrollClock))
	loader := &history.StaticLoader{Records: []history.Record{{ID: "old", Body: "before"}}}

	h := newHarness(t, WithObserver(ScrollObserver(ctl)), WithHistoryLoader(loader))
	h.connect(t)
	require.Equal(t, []string{"top", "bottom-animated"}, vp.calls)
	vp.calls = nil

	h.delta("Hello")
	h.clock.Advance(16 * time.Millisecond)
	require.True(t, ctl.Streaming())
	require.Equal(t, []string{"bottom-animated"}, vp.calls)

	// the user scrolls away mid-stream: later frames leave the viewport alone
	vp.distance = 40
	ctl.OnUserScroll()
	vp.calls = nil
	h.delta(" world")
	h.clock.Advance(16 * time.Millisecond)
	require.Empty(t, vp.calls)

	h.deliver("finished", nil)
	require.Equal(t, []string{"bottom"}, vp.calls)
	require.True(t, ctl.AutoFollow())

	vp.calls = nil
	h.deliver("trigger", map[string]any{"options": []any{}})
	require.Equal(t, []string{"bottom"}, vp.calls)
}

func TestObservers_FanOutInOrder(t *testing.T) {
	var got []string
	obs := Observers{
		ObserverFunc(func(ev Event) { got = append(got, "a:"+string(ev.Kind)) }),
		nil,
		ObserverFunc(func(ev Event) { got = append(got, "b:"+string(ev.Kind)) }),
	}
	obs.OnEvent(Event{Kind: EventBusyChanged})
	require.Equal(t, []string{"a:busy_changed", "b:busy_changed"}, got)
}

func TestApplyToScroll_ClearedHistoryAllowsNewInitialLoad(t *testing.T) {
	vp := &recordingViewport{}
	ctl := scroll.New(vp, scroll.WithClock(clock.NewFake(time.Time{})))
	ApplyToScroll(ctl, Event{Kind: EventHistoryLoaded})
	ApplyToScroll(ctl, Event{Kind: EventHistoryLoaded})
	require.Len(t, vp.calls, 2)

	ApplyToScroll(ctl, Event{Kind: EventHistoryCleared})
	ApplyToScroll(ctl, Event{Kind: EventHistoryLoaded})
	require.Len(t, vp.calls, 4)
	ApplyToScroll(nil, Event{Kind: EventHistoryLoaded})
}
