// Package config resolves wizchat settings from defaults, a YAML file, a .env file,
// WIZCHAT_* environment variables and command-line flags, in that order.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/wizchat/pkg/logging"
	"github.com/go-go-golems/wizchat/pkg/redisstream"
)

const EnvPrefix = "WIZCHAT_"

type Timeouts struct {
	NoResponse time.Duration `yaml:"no_response"`
	Silence    time.Duration `yaml:"silence"`
	Frame      time.Duration `yaml:"frame"`
	Handshake  time.Duration `yaml:"handshake"`
	// Write bounds each outbound write. Sends hold the client lock while writing.
	Write time.Duration `yaml:"write"`
}

type Keepalive struct {
	Interval    time.Duration `yaml:"interval"`
	PongTimeout time.Duration `yaml:"pong_timeout"`
}

type Scroll struct {
	Threshold int           `yaml:"threshold"`
	Debounce  time.Duration `yaml:"debounce"`
}

type Settings struct {
	URL          string               `yaml:"url"`
	HistoryURL   string               `yaml:"history_url"`
	HistoryLimit int                  `yaml:"history_limit"`
	SessionDB    string               `yaml:"session_db"`
	MetricsAddr  string               `yaml:"metrics_addr"`
	Timeouts     Timeouts             `yaml:"timeouts"`
	Keepalive    Keepalive            `yaml:"keepalive"`
	Scroll       Scroll               `yaml:"scroll"`
	Redis        redisstream.Settings `yaml:"redis"`
	Logging      logging.Settings     `yaml:"logging"`
}

func Default() Settings {
	return Settings{
		HistoryLimit: 50,
		SessionDB:    "wizchat.db",
		Timeouts: Timeouts{
			NoResponse: 30 * time.Second,
			Silence:    15 * time.Second,
			Frame:      16 * time.Millisecond,
			Handshake:  10 * time.Second,
			Write:      2 * time.Second,
		},
		Keepalive: Keepalive{Interval: 30 * time.Second, PongTimeout: 75 * time.Second},
		Scroll:    Scroll{Threshold: 3, Debounce: 150 * time.Millisecond},
		Redis:     redisstream.DefaultSettings(),
		Logging:   logging.Settings{Level: "info"},
	}
}

// LoadDotEnv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// LoadFile merges the YAML file at path into s. Keys absent from the file keep their
// current values.
func LoadFile(path string, s *Settings) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, s); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// ApplyEnv overrides s from WIZCHAT_* variables found through lookup.
func ApplyEnv(s *Settings, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, name)
		}
		*dst = d
		return nil
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, name)
		}
		*dst = n
		return nil
	}

	str("URL", &s.URL)
	str("HISTORY_URL", &s.HistoryURL)
	str("SESSION_DB", &s.SessionDB)
	str("METRICS_ADDR", &s.MetricsAddr)
	str("LOG_LEVEL", &s.Logging.Level)
	str("LOG_FORMAT", &s.Logging.Format)
	str("LOG_FILE", &s.Logging.File)
	str("REDIS_ADDR", &s.Redis.Addr)
	str("REDIS_TOPIC", &s.Redis.Topic)
	if v, ok := lookup(EnvPrefix + "REDIS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "%sREDIS_ENABLED", EnvPrefix)
		}
		s.Redis.Enabled = b
	}
	for _, err := range []error{
		integer("HISTORY_LIMIT", &s.HistoryLimit),
		integer("SCROLL_THRESHOLD", &s.Scroll.Threshold),
		dur("NO_RESPONSE_TIMEOUT", &s.Timeouts.NoResponse),
		dur("SILENCE_TIMEOUT", &s.Timeouts.Silence),
		dur("FRAME_INTERVAL", &s.Timeouts.Frame),
		dur("WRITE_TIMEOUT", &s.Timeouts.Write),
		dur("KEEPALIVE_INTERVAL", &s.Keepalive.Interval),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s Settings) Validate() error {
	if s.HistoryLimit <= 0 {
		return errors.Errorf("history_limit must be positive, got %d", s.HistoryLimit)
	}
	if s.Scroll.Threshold < 0 {
		return errors.Errorf("scroll.threshold must not be negative, got %d", s.Scroll.Threshold)
	}
	if s.Keepalive.Interval > 0 && s.Keepalive.PongTimeout > 0 && s.Keepalive.PongTimeout <= s.Keepalive.Interval {
		return errors.New("keepalive.pong_timeout must exceed keepalive.interval")
	}
	if s.URL != "" && !strings.Contains(s.URL, "://") {
		return errors.Errorf("url %q has no scheme", s.URL)
	}
	return nil
}

// AddFlags registers the settings flags on cmd, bound to s.
func AddFlags(cmd *cobra.Command, s *Settings) {
	f := cmd.PersistentFlags()
	f.String("config", "", "YAML config file (default $WIZCHAT_CONFIG)")
	f.StringVar(&s.URL, "url", s.URL, "Chat websocket URL; {session_id} is substituted")
	f.StringVar(&s.HistoryURL, "history-url", s.HistoryURL, "History endpoint URL")
	f.IntVar(&s.HistoryLimit, "history-limit", s.HistoryLimit, "Messages fetched from history on first connect")
	f.StringVar(&s.SessionDB, "session-db", s.SessionDB, "SQLite file keeping the session identity (empty: in-memory)")
	f.StringVar(&s.MetricsAddr, "metrics-addr", s.MetricsAddr, "Serve prometheus metrics on this address")
	f.DurationVar(&s.Timeouts.NoResponse, "no-response-timeout", s.Timeouts.NoResponse, "Give up when nothing arrives after a send (0 disables)")
	f.DurationVar(&s.Timeouts.Silence, "silence-timeout", s.Timeouts.Silence, "Finalize a stream that stays silent this long (0 disables)")
	f.DurationVar(&s.Timeouts.Frame, "frame-interval", s.Timeouts.Frame, "Render coalescing interval")
	f.DurationVar(&s.Timeouts.Write, "write-timeout", s.Timeouts.Write, "Deadline for each outbound websocket write")
	logging.AddFlags(cmd, &s.Logging)
	redisstream.AddFlags(cmd, &s.Redis)
}

// Resolve fills s from defaults, .env, the config file and the environment, then
// re-applies every flag the user set explicitly so flags win.
func Resolve(cmd *cobra.Command, s *Settings) error {
	type setFlag struct {
		flag  *pflag.Flag
		value string
	}
	var explicit []setFlag
	cmd.Flags().Visit(func(f *pflag.Flag) {
		explicit = append(explicit, setFlag{flag: f, value: f.Value.String()})
	})

	if err := LoadDotEnv(); err != nil {
		return err
	}
	resolved := Default()
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := LoadFile(path, &resolved); err != nil {
			return err
		}
	}
	if err := ApplyEnv(&resolved, os.LookupEnv); err != nil {
		return err
	}

	*s = resolved
	for _, e := range explicit {
		if err := e.flag.Value.Set(e.value); err != nil {
			return errors.Wrapf(err, "flag --%s", e.flag.Name)
		}
	}
	if err := s.expandPaths(); err != nil {
		return err
	}
	return s.Validate()
}

func (s *Settings) expandPaths() error {
	for _, p := range []*string{&s.SessionDB, &s.Logging.File} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return errors.Wrapf(err, "expand %s", *p)
		}
		*p = expanded
	}
	return nil
}
