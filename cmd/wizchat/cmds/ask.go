package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/wizchat/pkg/config"
	"github.com/go-go-golems/wizchat/pkg/store"
	"github.com/go-go-golems/wizchat/pkg/ui"
	"github.com/go-go-golems/wizchat/pkg/webchat"
)

func NewAskCommand(s *config.Settings) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			waiter := newTurnWaiter()
			env, err := newClientEnv(s, webchat.WithObserver(waiter))
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return ask(ctx, env.client, waiter, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall time limit (0 waits forever)")
	return cmd
}

// turnWaiter signals the end of the assistant turn that follows a send.
type turnWaiter struct {
	done chan turnEnd
}

type turnEnd struct {
	reason string
	err    error
}

var _ webchat.Observer = &turnWaiter{}

func newTurnWaiter() *turnWaiter {
	return &turnWaiter{done: make(chan turnEnd, 1)}
}

func (w *turnWaiter) OnEvent(ev webchat.Event) {
	var end turnEnd
	switch ev.Kind {
	case webchat.EventStreamFinished:
		end.reason = "finished"
	case webchat.EventBusyChanged:
		if ev.Flag {
			return
		}
		end.reason = "idle"
	case webchat.EventMessageAppended:
		if ev.Message == nil || ev.Message.Role != store.RoleAssistant {
			return
		}
		switch ev.Message.Type {
		case store.TypeOption:
			end.reason = "options"
		case store.TypeError:
			end.reason = "error"
			end.err = errors.New(ui.RenderMessage(*ev.Message))
		default:
			return
		}
	case webchat.EventDegraded:
		if !ev.Flag {
			return
		}
		end.err = webchat.ErrUnavailable
	default:
		return
	}
	select {
	case w.done <- end:
	default:
	}
}

func (w *turnWaiter) reset() {
	select {
	case <-w.done:
	default:
	}
}

type askChat interface {
	Connect(ctx context.Context) error
	SendText(text string) error
	Store() *store.Store
}

func ask(ctx context.Context, chat askChat, w *turnWaiter, question string, out io.Writer) error {
	if err := chat.Connect(ctx); err != nil {
		return err
	}
	start := chat.Store().Len()
	w.reset()
	if err := chat.SendText(question); err != nil {
		return err
	}

	var end turnEnd
	select {
	case end = <-w.done:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for reply")
	}

	msgs := chat.Store().Snapshot()
	for _, m := range msgs[min(start+1, len(msgs)):] {
		if m.Role != store.RoleAssistant || m.Type == store.TypeError {
			continue
		}
		if _, err := fmt.Fprintln(out, ui.RenderMessage(m)); err != nil {
			return err
		}
	}
	return end.err
}
