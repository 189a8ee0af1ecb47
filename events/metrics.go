package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// MetricsSink counts events by name.
type MetricsSink struct {
	Emitted *prometheus.CounterVec
}

// NewMetricsSink creates and registers the event counter.
func NewMetricsSink(namespace string, reg prometheus.Registerer) *MetricsSink {
	return &MetricsSink{
		Emitted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_events_total",
			Help:      "Total number of registry and coordinator events by event name",
		}, []string{"event"}),
	}
}

func (s *MetricsSink) Emit(_ context.Context, event interfaces.Event) {
	s.Emitted.WithLabelValues(event.EventName()).Inc()
}
