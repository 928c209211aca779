package cmds

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wizchat/pkg/config"
	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/persistence/chatstore"
	"github.com/go-go-golems/wizchat/pkg/session"
	"github.com/go-go-golems/wizchat/pkg/transport"
	"github.com/go-go-golems/wizchat/pkg/webchat"
)

// clientEnv is a configured client plus the resources it owns for one command run.
type clientEnv struct {
	client     *webchat.Client
	registry   *prometheus.Registry
	ids        session.IdentityStore
	transcript chatstore.TranscriptStore
}

func openIdentityStore(s *config.Settings) (session.IdentityStore, error) {
	if s.SessionDB == "" {
		return session.NewMemoryIdentityStore(), nil
	}
	ids, err := session.NewSQLiteIdentityStore(s.SessionDB)
	if err != nil {
		return nil, errors.Wrapf(err, "open session db %s", s.SessionDB)
	}
	return ids, nil
}

func newClientEnv(s *config.Settings, extra ...webchat.ClientOption) (*clientEnv, error) {
	ids, err := openIdentityStore(s)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := transport.NewWebsocketFactory(
		transport.WithHandshakeTimeout(s.Timeouts.Handshake),
		transport.WithWriteTimeout(s.Timeouts.Write),
		transport.WithKeepalive(s.Keepalive.Interval, s.Keepalive.PongTimeout),
	)
	opts := []webchat.ClientOption{
		webchat.WithURL(s.URL),
		webchat.WithTransportFactory(factory),
		webchat.WithIdentityStore(ids),
		webchat.WithMetrics(webchat.NewMetrics(reg)),
		webchat.WithTimeouts(s.Timeouts.NoResponse, s.Timeouts.Silence),
		webchat.WithFrameInterval(s.Timeouts.Frame),
	}
	env := &clientEnv{registry: reg, ids: ids}

	// the local transcript shares the session db; it doubles as history when no
	// history endpoint is configured
	if s.SessionDB != "" {
		transcript, err := chatstore.NewSQLiteTranscriptStore(s.SessionDB)
		if err != nil {
			_ = ids.Close()
			return nil, errors.Wrapf(err, "open transcript %s", s.SessionDB)
		}
		env.transcript = transcript
		opts = append(opts, webchat.WithObserver(chatstore.NewRecorder(transcript)))
	}

	switch {
	case s.HistoryURL != "":
		opts = append(opts, webchat.WithHistoryLoader(history.NewHTTPLoader(s.HistoryURL, s.Timeouts.Handshake)))
	case env.transcript != nil:
		opts = append(opts, webchat.WithHistoryLoader(&chatstore.Loader{Store: env.transcript}))
	}
	opts = append(opts, webchat.WithHistoryLimit(s.HistoryLimit))
	opts = append(opts, extra...)

	client, err := webchat.New(opts...)
	if err != nil {
		_ = env.closeStores()
		return nil, err
	}
	env.client = client
	return env, nil
}

func (e *clientEnv) closeStores() error {
	err := e.ids.Close()
	if e.transcript != nil {
		if cerr := e.transcript.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (e *clientEnv) Close() error {
	err := e.client.Close()
	if cerr := e.closeStores(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// serveMetrics exposes reg on addr until ctx is done. An empty addr disables it.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown error")
		}
	}()

	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "metrics server")
	}
	return nil
}
