package cmds

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/wizchat/pkg/config"
	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/persistence/chatstore"
	"github.com/go-go-golems/wizchat/pkg/session"
	"github.com/go-go-golems/wizchat/pkg/store"
	"github.com/go-go-golems/wizchat/pkg/ui"
)

func NewTranscriptCommand(s *config.Settings) *cobra.Command {
	var (
		sessionID string
		limit     int
		printOnly bool
	)
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Browse the locally recorded transcript of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.SessionDB == "" {
				return errors.New("no transcript without --session-db")
			}
			ctx := cmd.Context()
			msgs, id, err := loadTranscript(ctx, s.SessionDB, sessionID, limit)
			if err != nil {
				return err
			}
			if printOnly {
				return printTranscript(cmd.OutOrStdout(), msgs)
			}
			p := tea.NewProgram(ui.NewBrowser("session "+id, msgs), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return errors.Wrap(err, "run transcript browser")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (default: the persisted one)")
	cmd.Flags().IntVar(&limit, "limit", 500, "Most recent messages to load (0 loads all)")
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the transcript instead of opening the browser")
	return cmd
}

func loadTranscript(ctx context.Context, dsn, sessionID string, limit int) ([]store.Message, string, error) {
	if sessionID == "" {
		ids, err := session.NewSQLiteIdentityStore(dsn)
		if err != nil {
			return nil, "", err
		}
		sessionID, err = ids.Load(ctx)
		_ = ids.Close()
		if errors.Is(err, session.ErrNotFound) {
			return nil, "", errors.New("no session yet, pass --session")
		}
		if err != nil {
			return nil, "", err
		}
	}

	transcript, err := chatstore.NewSQLiteTranscriptStore(dsn)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = transcript.Close() }()
	recs, err := transcript.List(ctx, sessionID, 0, limit)
	if err != nil {
		return nil, "", err
	}
	return history.ToMessages(recs), sessionID, nil
}

func printTranscript(w io.Writer, msgs []store.Message) error {
	for i, m := range msgs {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s:\n%s\n", m.Role, ui.RenderMessage(m)); err != nil {
			return err
		}
	}
	return nil
}
