package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	require.Equal(t, 30*time.Second, s.Timeouts.NoResponse)
	require.Equal(t, 15*time.Second, s.Timeouts.Silence)
	require.Equal(t, 2*time.Second, s.Timeouts.Write)
	require.Equal(t, 50, s.HistoryLimit)
}

func TestLoadFile_MergesOverDefaults(t *testing.T) {
	p := writeFile(t, "wizchat.yaml", `
url: wss://chat.example.com/ws/{session_id}
timeouts:
  no_response: 45s
scroll:
  threshold: 5
redis:
  enabled: true
  addr: redis:6379
`)
	s := Default()
	require.NoError(t, LoadFile(p, &s))
	require.Equal(t, "wss://chat.example.com/ws/{session_id}", s.URL)
	require.Equal(t, 45*time.Second, s.Timeouts.NoResponse)
	require.Equal(t, 15*time.Second, s.Timeouts.Silence)
	require.Equal(t, 5, s.Scroll.Threshold)
	require.True(t, s.Redis.Enabled)
	require.Equal(t, "redis:6379", s.Redis.Addr)
	require.Equal(t, "wizchat.events", s.Redis.Topic)

	require.Error(t, LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &s))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"WIZCHAT_URL":                 "ws://localhost:8080/ws",
		"WIZCHAT_SILENCE_TIMEOUT":     "2s",
		"WIZCHAT_HISTORY_LIMIT":       "10",
		"WIZCHAT_REDIS_ENABLED":       "true",
		"WIZCHAT_LOG_LEVEL":           "debug",
		"WIZCHAT_NO_RESPONSE_TIMEOUT": "0s",
		"WIZCHAT_WRITE_TIMEOUT":       "500ms",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	s := Default()
	require.NoError(t, ApplyEnv(&s, lookup))
	require.Equal(t, "ws://localhost:8080/ws", s.URL)
	require.Equal(t, 2*time.Second, s.Timeouts.Silence)
	require.Equal(t, time.Duration(0), s.Timeouts.NoResponse)
	require.Equal(t, 500*time.Millisecond, s.Timeouts.Write)
	require.Equal(t, 10, s.HistoryLimit)
	require.True(t, s.Redis.Enabled)
	require.Equal(t, "debug", s.Logging.Level)

	env["WIZCHAT_SILENCE_TIMEOUT"] = "soon"
	require.Error(t, ApplyEnv(&s, lookup))
}

func TestValidate(t *testing.T) {
	s := Default()
	s.HistoryLimit = 0
	require.Error(t, s.Validate())

	s = Default()
	s.URL = "chat.example.com"
	require.Error(t, s.Validate())

	s = Default()
	s.Keepalive.PongTimeout = s.Keepalive.Interval
	require.Error(t, s.Validate())
}

func TestResolve_FlagsBeatFileAndEnv(t *testing.T) {
	p := writeFile(t, "wizchat.yaml", "url: ws://from-file/ws\nhistory_limit: 20\n")
	t.Setenv("WIZCHAT_HISTORY_LIMIT", "30")
	t.Setenv("WIZCHAT_CONFIG", "")

	s := Default()
	var got Settings
	cmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := Resolve(cmd, &s); err != nil {
				return err
			}
			got = s
			return nil
		},
	}
	AddFlags(cmd, &s)
	cmd.SetArgs([]string{"--config", p, "--silence-timeout", "3s", "--redis-topic", "custom"})
	require.NoError(t, cmd.Execute())

	require.Equal(t, "ws://from-file/ws", got.URL)
	require.Equal(t, 30, got.HistoryLimit)
	require.Equal(t, 3*time.Second, got.Timeouts.Silence)
	require.Equal(t, 30*time.Second, got.Timeouts.NoResponse)
	require.Equal(t, "custom", got.Redis.Topic)
}

func TestResolve_ExpandsHomePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("WIZCHAT_CONFIG", "")
	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()

	s := Default()
	cmd := &cobra.Command{
		Use:  "test",
		RunE: func(cmd *cobra.Command, args []string) error { return Resolve(cmd, &s) },
	}
	AddFlags(cmd, &s)
	cmd.SetArgs([]string{"--session-db", "~/wizchat.db"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, filepath.Join(home, "wizchat.db"), s.SessionDB)
}
