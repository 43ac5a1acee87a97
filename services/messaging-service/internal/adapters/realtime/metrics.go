package realtime

import "github.com/prometheus/client_golang/prometheus"

const (
	sinkSSE      = "sse"
	sinkSupabase = "supabase"
)

// Metrics - счетчики доставки событий по приемникам.
type Metrics struct {
	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// NewMetrics регистрирует счетчики в reg. nil - счетчики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "messaging_service",
			Name:      "realtime_events_delivered_total",
			Help:      "Realtime events handed to a sink.",
		}, []string{"sink"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "messaging_service",
			Name:      "realtime_events_dropped_total",
			Help:      "Realtime events dropped because a buffer was full or the sink failed.",
		}, []string{"sink"}),
	}
	if reg != nil {
		reg.MustRegister(m.delivered, m.dropped)
	}
	return m
}

func (m *Metrics) delivery(sink string) {
	m.delivered.WithLabelValues(sink).Inc()
}

func (m *Metrics) drop(sink string) {
	m.dropped.WithLabelValues(sink).Inc()
}
