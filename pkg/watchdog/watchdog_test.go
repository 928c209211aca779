package watchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/clock"
)

func TestWatchdog_ExpiresAfterTimeout(t *testing.T) {
	c := clock.NewFake(time.Time{})
	fired := 0
	w := New("initial", 10*time.Second, c, func() { fired++ })

	w.Arm()
	require.True(t, w.Armed())
	deadline, ok := w.Deadline()
	require.True(t, ok)
	require.Equal(t, c.Now().Add(10*time.Second), deadline)

	c.Advance(9 * time.Second)
	require.Equal(t, 0, fired)
	c.Advance(time.Second)
	require.Equal(t, 1, fired)
	require.False(t, w.Armed())

	c.Advance(time.Minute)
	require.Equal(t, 1, fired)
}

func TestWatchdog_RearmPushesDeadline(t *testing.T) {
	c := clock.NewFake(time.Time{})
	fired := 0
	w := New("inter-delta", 5*time.Second, c, func() { fired++ })

	w.Arm()
	for i := 0; i < 5; i++ {
		c.Advance(4 * time.Second)
		w.Arm()
	}
	require.Equal(t, 0, fired)
	require.Equal(t, 1, c.Pending())

	c.Advance(5 * time.Second)
	require.Equal(t, 1, fired)
}

func TestWatchdog_CancelIsIdempotent(t *testing.T) {
	c := clock.NewFake(time.Time{})
	fired := 0
	w := New("x", time.Second, c, func() { fired++ })

	w.Cancel()
	w.Arm()
	w.Cancel()
	w.Cancel()
	c.Advance(time.Hour)
	require.Equal(t, 0, fired)
	require.False(t, w.Armed())
	_, ok := w.Deadline()
	require.False(t, ok)
}

func TestWatchdog_DisabledWhenTimeoutNotPositive(t *testing.T) {
	c := clock.NewFake(time.Time{})
	w := New("off", 0, c, func() { t.Fatal("should not fire") })
	w.Arm()
	require.False(t, w.Armed())
	require.Equal(t, 0, c.Pending())
}

func TestWatchdog_IndependentInstances(t *testing.T) {
	c := clock.NewFake(time.Time{})
	var order []string
	a := New("a", 2*time.Second, c, func() { order = append(order, "a") })
	b := New("b", time.Second, c, func() { order = append(order, "b") })
	a.Arm()
	b.Arm()
	a.Cancel()
	c.Advance(3 * time.Second)
	require.Equal(t, []string{"b"}, order)
}
