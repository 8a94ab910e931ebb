package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/baystatus/pkg/enums"
)

// IngestMetrics counts inbound store-event frames per bay and outcome.
type IngestMetrics struct {
	frames *prometheus.CounterVec
}

// NewIngestMetrics registers the ingest metrics on the provided registerer.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	frames := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_event_frames_total",
		Help: "Store event frames handled by bay receivers, by outcome.",
	}, []string{"bay", "outcome"})
	reg.MustRegister(frames)
	return &IngestMetrics{frames: frames}
}

// ObserveFrame increments the frame counter for the bay and outcome.
func (m *IngestMetrics) ObserveFrame(bay string, outcome enums.FrameOutcome) {
	if m == nil || m.frames == nil {
		return
	}
	m.frames.WithLabelValues(normalizeLabel(bay), normalizeLabel(outcome.String())).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
