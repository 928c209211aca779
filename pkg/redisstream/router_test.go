package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestBuildBus_InProcessWhenRedisDisabled(t *testing.T) {
	bus, err := BuildBus(DefaultSettings())
	require.NoError(t, err)
	defer func() { require.NoError(t, bus.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := bus.Subscriber.Subscribe(ctx, "t")
	require.NoError(t, err)

	require.NoError(t, bus.Publisher.Publish("t", message.NewMessage(watermill.NewUUID(), []byte(`{"kind":"busy_changed"}`))))
	select {
	case msg := <-ch:
		require.JSONEq(t, `{"kind":"busy_changed"}`, string(msg.Payload))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message")
	}
}

func TestAddFlags_OverrideDefaults(t *testing.T) {
	s := DefaultSettings()
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	AddFlags(cmd, &s)
	require.NoError(t, cmd.ParseFlags([]string{"--redis-enabled", "--redis-addr", "redis:6380", "--redis-topic", "chat"}))
	require.True(t, s.Enabled)
	require.Equal(t, "redis:6380", s.Addr)
	require.Equal(t, "chat", s.Topic)
	require.Equal(t, "wizchat-ui", s.Group)
}
