package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/wizchat/pkg/config"
	"github.com/go-go-golems/wizchat/pkg/persistence/chatstore"
	"github.com/go-go-golems/wizchat/pkg/session"
)

func NewSessionCommand(s *config.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the persisted session identity",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the persisted session id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := openIdentityStore(s)
			if err != nil {
				return err
			}
			defer func() { _ = ids.Close() }()

			id, err := ids.Load(cmd.Context())
			if errors.Is(err, session.ErrNotFound) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no session yet")
				return err
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the session id and its transcript; the next connect starts a new conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids, err := openIdentityStore(s)
			if err != nil {
				return err
			}
			defer func() { _ = ids.Close() }()

			id, err := ids.Load(ctx)
			if errors.Is(err, session.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if s.SessionDB != "" {
				transcript, err := chatstore.NewSQLiteTranscriptStore(s.SessionDB)
				if err != nil {
					return err
				}
				defer func() { _ = transcript.Close() }()
				if err := transcript.DeleteSession(ctx, id); err != nil {
					return err
				}
			}
			return ids.Delete(ctx)
		},
	})

	return cmd
}
