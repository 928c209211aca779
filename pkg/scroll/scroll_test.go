package scroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/clock"
)

type fakeViewport struct {
	distance int
	calls    []string
}

func (v *fakeViewport) DistanceFromBottom() int { return v.distance }

func (v *fakeViewport) ScrollToBottom(animated bool) {
	if animated {
		v.calls = append(v.calls, "bottom-animated")
	} else {
		v.calls = append(v.calls, "bottom")
	}
	v.distance = 0
}

func (v *fakeViewport) ScrollToTop() {
	v.calls = append(v.calls, "top")
	v.distance = 100
}

func newController(vp *fakeViewport) (*Controller, *clock.Fake) {
	fc := clock.NewFake(time.Time{})
	return New(vp, WithClock(fc), WithThreshold(3), WithDebounce(150*time.Millisecond)), fc
}

func TestStreamUpdate_FollowsWhenNearBottom(t *testing.T) {
	vp := &fakeViewport{distance: 2}
	c, _ := newController(vp)
	c.OnStreamStart()
	require.True(t, c.OnStreamUpdate())
	require.Equal(t, []string{"bottom-animated"}, vp.calls)
}

func TestStreamUpdate_UserScrollAwayDisengagesThenReengages(t *testing.T) {
	vp := &fakeViewport{}
	c, fc := newController(vp)
	c.OnStreamStart()

	vp.distance = 40
	c.OnUserScroll()
	require.False(t, c.AutoFollow())
	fc.Advance(200 * time.Millisecond)
	require.False(t, c.UserScrolling())

	vp.distance = 40
	require.False(t, c.OnStreamUpdate())
	require.Empty(t, vp.calls)

	vp.distance = 1
	c.OnUserScroll()
	require.True(t, c.AutoFollow())
	// still inside the debounce window
	require.False(t, c.OnStreamUpdate())

	fc.Advance(150 * time.Millisecond)
	require.True(t, c.OnStreamUpdate())
	require.Equal(t, []string{"bottom-animated"}, vp.calls)
}

func TestUserScroll_DebounceRestartsOnEachEvent(t *testing.T) {
	vp := &fakeViewport{distance: 0}
	c, fc := newController(vp)
	c.OnUserScroll()
	fc.Advance(100 * time.Millisecond)
	c.OnUserScroll()
	fc.Advance(100 * time.Millisecond)
	require.True(t, c.UserScrolling())
	fc.Advance(50 * time.Millisecond)
	require.False(t, c.UserScrolling())
}

func TestDiscreteMessage_ForcesJump(t *testing.T) {
	vp := &fakeViewport{distance: 50}
	c, _ := newController(vp)
	c.OnStreamStart()
	c.OnUserScroll()
	c.OnDiscreteMessage()
	require.Equal(t, []string{"bottom"}, vp.calls)
	require.True(t, c.AutoFollow())
}

func TestStreamEnd_SnapsAndReenablesFollow(t *testing.T) {
	vp := &fakeViewport{distance: 50}
	c, _ := newController(vp)
	c.OnStreamStart()
	c.OnUserScroll()
	require.False(t, c.AutoFollow())

	c.OnStreamEnd()
	require.True(t, c.AutoFollow())
	require.False(t, c.Streaming())
	require.Equal(t, []string{"bottom"}, vp.calls)
}

func TestInitialLoad_RunsOncePerSession(t *testing.T) {
	vp := &fakeViewport{}
	c, _ := newController(vp)
	require.True(t, c.InitialLoad())
	require.False(t, c.InitialLoad())
	require.Equal(t, []string{"top", "bottom-animated"}, vp.calls)

	c.ResetSession()
	require.True(t, c.InitialLoad())
	require.Len(t, vp.calls, 4)
}

func TestInitialLoad_FlagIsPerController(t *testing.T) {
	a, _ := newController(&fakeViewport{})
	b, _ := newController(&fakeViewport{})
	require.True(t, a.InitialLoad())
	require.True(t, b.InitialLoad())
}
