package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/wizchat/cmd/wizchat/cmds"
	"github.com/go-go-golems/wizchat/pkg/config"
	"github.com/go-go-golems/wizchat/pkg/logging"
)

func newRootCommand(settings *config.Settings) *cobra.Command {
	var logCloser io.Closer
	root := &cobra.Command{
		Use:          "wizchat",
		Short:        "wizchat is a terminal client for a streaming wizard chat backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// flags are parsed now, so config sources can be layered under them
			if err := config.Resolve(cmd, settings); err != nil {
				return err
			}
			c, err := logging.Init(settings.Logging)
			if err != nil {
				return err
			}
			logCloser = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				_ = logCloser.Close()
			}
		},
	}
	config.AddFlags(root, settings)

	root.AddCommand(
		cmds.NewChatCommand(settings),
		cmds.NewAskCommand(settings),
		cmds.NewSessionCommand(settings),
		cmds.NewTailCommand(settings),
		cmds.NewTranscriptCommand(settings),
	)
	return root
}

func main() {
	settings := config.Default()
	root := newRootCommand(&settings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Debug().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
