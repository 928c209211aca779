package cmds

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/wizchat/pkg/config"
	"github.com/go-go-golems/wizchat/pkg/eventbus"
	"github.com/go-go-golems/wizchat/pkg/redisstream"
	"github.com/go-go-golems/wizchat/pkg/webchat"
)

func NewTailCommand(s *config.Settings) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow client events published to Redis by running chat sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !s.Redis.Enabled {
				return errors.New("tail reads events from redis, pass --redis-enabled")
			}
			ctx := cmd.Context()
			if err := redisstream.EnsureGroupAtTail(ctx, s.Redis.Addr, s.Redis.Topic, s.Redis.Group); err != nil {
				return err
			}
			sub, err := redisstream.BuildGroupSubscriber(s.Redis.Addr, s.Redis.Group, s.Redis.Consumer)
			if err != nil {
				return err
			}
			defer func() { _ = sub.Close() }()

			out := cmd.OutOrStdout()
			return eventbus.Consume(ctx, sub, s.Redis.Topic, func(ev webchat.Event) error {
				return printEvent(out, ev, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON events")
	return cmd
}

func printEvent(w io.Writer, ev webchat.Event, asJSON bool) error {
	if asJSON {
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	line := fmt.Sprintf("%s %-20s session=%s", ev.At.Format(time.RFC3339), ev.Kind, ev.SessionID)
	switch ev.Kind {
	case webchat.EventStateChanged:
		line += " state=" + ev.State.String()
	case webchat.EventStreamStarted, webchat.EventStreamUpdated, webchat.EventStreamFinished, webchat.EventMessageAppended:
		line += " message=" + ev.MessageID
	case webchat.EventCaptionChanged:
		line += fmt.Sprintf(" caption=%q", ev.Caption)
	case webchat.EventWatchdogExpired:
		line += " watchdog=" + ev.Reason
	case webchat.EventTransportFailure:
		line += " error=" + ev.Error
	case webchat.EventHistoryLoaded:
		line += fmt.Sprintf(" count=%d", ev.Count)
	case webchat.EventBusyChanged, webchat.EventInteractive, webchat.EventDegraded:
		line += fmt.Sprintf(" flag=%t", ev.Flag)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
