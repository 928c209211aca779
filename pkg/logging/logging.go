// Package logging configures the global zerolog logger for the wizchat binaries.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type Settings struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "console", "json" or "" (console on a TTY)
	File       string `yaml:"file"`
	WithCaller bool   `yaml:"with_caller"`
}

func AddFlags(cmd *cobra.Command, s *Settings) {
	f := cmd.PersistentFlags()
	f.StringVar(&s.Level, "log-level", s.Level, "Log level (trace, debug, info, warn, error)")
	f.StringVar(&s.Format, "log-format", s.Format, "Log format: console or json")
	f.StringVar(&s.File, "log-file", s.File, "Write logs to this file instead of stderr")
	f.BoolVar(&s.WithCaller, "with-caller", s.WithCaller, "Add caller information to log lines")
}

// Init replaces log.Logger according to s. The returned closer releases the log file,
// if one was opened.
func Init(s Settings) (io.Closer, error) {
	level := zerolog.InfoLevel
	if s.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	tty := isatty.IsTerminal(os.Stderr.Fd())
	if s.File != "" {
		f, err := os.OpenFile(s.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "open log file %s", s.File)
		}
		out = f
		closer = f
		tty = false
	}

	switch s.Format {
	case "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: !tty}
	case "":
		if tty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
		}
	default:
		_ = closer.Close()
		return nil, errors.Errorf("unknown log format %q", s.Format)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
