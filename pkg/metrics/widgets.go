package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	LookupResultSuccess = "success"
	LookupResultFailure = "failure"
	LookupResultStale   = "stale"
)

// WidgetMetrics records vehicle part lookups issued by widget reactors.
type WidgetMetrics struct {
	lookups  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWidgetMetrics registers the widget metrics on the provided registerer.
func NewWidgetMetrics(reg prometheus.Registerer) *WidgetMetrics {
	if reg == nil {
		return &WidgetMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "widget_lookups_total",
		Help: "Vehicle part lookups by widget and result.",
	}, []string{"widget", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "widget_lookup_duration_seconds",
		Help:    "Duration of vehicle part lookups in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"widget"})
	reg.MustRegister(lookups, duration)
	return &WidgetMetrics{
		lookups:  lookups,
		duration: duration,
	}
}

// ObserveLookup records one completed lookup.
func (m *WidgetMetrics) ObserveLookup(widget, result string, elapsed time.Duration) {
	if m == nil || m.lookups == nil {
		return
	}
	widget = normalizeLabel(widget)
	m.lookups.WithLabelValues(widget, normalizeLabel(result)).Inc()
	if m.duration != nil {
		m.duration.WithLabelValues(widget).Observe(elapsed.Seconds())
	}
}
