package redisstream

import (
	"github.com/spf13/cobra"
)

// Settings holds Redis Streams transport configuration for the event bus.
type Settings struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
	Topic    string `yaml:"topic"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:     "localhost:6379",
		Group:    "wizchat-ui",
		Consumer: "ui-1",
		Topic:    "wizchat.events",
	}
}

// AddFlags registers the redis-* flags on cmd, bound to s. Values already in s are
// the defaults.
func AddFlags(cmd *cobra.Command, s *Settings) {
	f := cmd.Flags()
	f.BoolVar(&s.Enabled, "redis-enabled", s.Enabled, "Mirror chat events to Redis Streams")
	f.StringVar(&s.Addr, "redis-addr", s.Addr, "Redis address host:port")
	f.StringVar(&s.Group, "redis-group", s.Group, "Redis consumer group")
	f.StringVar(&s.Consumer, "redis-consumer", s.Consumer, "Redis consumer name")
	f.StringVar(&s.Topic, "redis-topic", s.Topic, "Stream (topic) carrying chat events")
}
