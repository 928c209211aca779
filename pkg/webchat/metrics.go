package webchat

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client's prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Deltas          prometheus.Counter
	Frames          prometheus.Counter
	ParseErrors     prometheus.Counter
	TransportErrors prometheus.Counter
	Connects        prometheus.Counter
	Expirations     *prometheus.CounterVec
	Sends           *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Deltas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wizchat", Name: "deltas_total",
			Help: "Delta frames received from the backend.",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wizchat", Name: "render_frames_total",
			Help: "Coalesced HTML materializations written to the store.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wizchat", Name: "parse_errors_total",
			Help: "Inbound frames that could not be decoded.",
		}),
		TransportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wizchat", Name: "transport_errors_total",
			Help: "Connection-level failures.",
		}),
		Connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wizchat", Name: "connects_total",
			Help: "Connections opened.",
		}),
		Expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wizchat", Name: "watchdog_expirations_total",
			Help: "Watchdog expirations by watchdog name.",
		}, []string{"watchdog"}),
		Sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wizchat", Name: "sends_total",
			Help: "Outbound envelopes by event.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.Deltas, m.Frames, m.ParseErrors, m.TransportErrors, m.Connects, m.Expirations, m.Sends)
	}
	return m
}

func (m *Metrics) incDelta() {
	if m != nil {
		m.Deltas.Inc()
	}
}

func (m *Metrics) incFrame() {
	if m != nil {
		m.Frames.Inc()
	}
}

func (m *Metrics) incParseError() {
	if m != nil {
		m.ParseErrors.Inc()
	}
}

func (m *Metrics) incTransportError() {
	if m != nil {
		m.TransportErrors.Inc()
	}
}

func (m *Metrics) incConnect() {
	if m != nil {
		m.Connects.Inc()
	}
}

func (m *Metrics) incExpiration(name string) {
	if m != nil {
		m.Expirations.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) incSend(event string) {
	if m != nil {
		m.Sends.WithLabelValues(event).Inc()
	}
}
