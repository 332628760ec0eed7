package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts traffic to and from the board. A nil *Metrics is valid and records nothing.
type Metrics struct {
	FramesSent    *prometheus.CounterVec // labels: function=query|set
	WriteErrors   prometheus.Counter
	StatusFrames  prometheus.Counter
	FramesDropped *prometheus.CounterVec // labels: reason=length|marker|checksum|invalid
	BytesReceived prometheus.Counter
}

// NewMetrics creates the relay metrics and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_frames_sent_total",
			Help: "Request frames written to the board.",
		}, []string{"function"}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_write_errors_total",
			Help: "Request frames that failed to write.",
		}),
		StatusFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_status_frames_total",
			Help: "Valid status frames decoded.",
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Inbound frames dropped by validation.",
		}, []string{"reason"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_bytes_received_total",
			Help: "Bytes received from the board.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesSent, m.WriteErrors, m.StatusFrames, m.FramesDropped, m.BytesReceived)
	}
	return m
}

func (m *Metrics) sent(function byte) {
	if m == nil {
		return
	}
	label := "set"
	if function == FunctionQuery {
		label = "query"
	}
	m.FramesSent.WithLabelValues(label).Inc()
}

func (m *Metrics) writeFailed() {
	if m != nil {
		m.WriteErrors.Inc()
	}
}

func (m *Metrics) decoded() {
	if m != nil {
		m.StatusFrames.Inc()
	}
}

func (m *Metrics) dropped(reason string) {
	if m != nil {
		m.FramesDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) received(n int) {
	if m != nil {
		m.BytesReceived.Add(float64(n))
	}
}
