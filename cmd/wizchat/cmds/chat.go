package cmds

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/wizchat/pkg/config"
	"github.com/go-go-golems/wizchat/pkg/eventbus"
	"github.com/go-go-golems/wizchat/pkg/redisstream"
	"github.com/go-go-golems/wizchat/pkg/scroll"
	"github.com/go-go-golems/wizchat/pkg/ui"
	"github.com/go-go-golems/wizchat/pkg/webchat"
)

func NewChatCommand(s *config.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), s)
		},
	}
}

func runChat(ctx context.Context, s *config.Settings) error {
	// the alt screen owns the terminal, keep stderr quiet unless logging to a file
	if s.Logging.File == "" {
		log.Logger = zerolog.Nop()
	}

	bridge := ui.NewBridge(0)
	opts := []webchat.ClientOption{webchat.WithObserver(bridge)}

	var fwd *eventbus.Forwarder
	if s.Redis.Enabled {
		bus, err := redisstream.BuildBus(s.Redis)
		if err != nil {
			return errors.Wrap(err, "build event bus")
		}
		defer func() { _ = bus.Close() }()
		fwd = eventbus.NewForwarder(bus.Publisher, s.Redis.Topic, 1024)
		opts = append(opts, webchat.WithObserver(fwd))
	}

	env, err := newClientEnv(s, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	if fwd != nil {
		eg.Go(func() error { return fwd.Run(ctx) })
	}
	eg.Go(func() error { return serveMetrics(ctx, s.MetricsAddr, env.registry) })
	eg.Go(func() error {
		// a failed dial leaves the client errored; the UI shows it and offers /reconnect
		if err := env.client.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("initial connect failed")
		}
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		model := ui.New(env.client, bridge,
			scroll.WithThreshold(s.Scroll.Threshold),
			scroll.WithDebounce(s.Scroll.Debounce),
		)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, "run chat ui")
		}
		return nil
	})

	return eg.Wait()
}
