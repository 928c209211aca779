package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesJSONToFile(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "wizchat.log")
	closer, err := Init(Settings{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	log.Debug().Str("component", "test").Msg("hello")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"component":"test"`)
	require.Contains(t, string(b), `"message":"hello"`)
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestInit_RejectsBadSettings(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	_, err := Init(Settings{Level: "loud"})
	require.Error(t, err)
	_, err = Init(Settings{Format: "xml"})
	require.Error(t, err)
}
