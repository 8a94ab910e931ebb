package metrics

import "github.com/prometheus/client_golang/prometheus"

// DistributorMetrics tracks fan-out activity per bay.
type DistributorMetrics struct {
	publishes   *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
	panics      *prometheus.CounterVec
}

// NewDistributorMetrics registers the distributor metrics on the provided registerer.
func NewDistributorMetrics(reg prometheus.Registerer) *DistributorMetrics {
	if reg == nil {
		return &DistributorMetrics{}
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bay_status_publishes_total",
		Help: "Events published into a bay status distributor.",
	}, []string{"bay"})
	subscribers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bay_status_subscribers",
		Help: "Active subscribers of a bay status distributor.",
	}, []string{"bay"})
	panics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bay_status_subscriber_panics_total",
		Help: "Subscriber handlers that panicked during delivery.",
	}, []string{"bay"})
	reg.MustRegister(publishes, subscribers, panics)
	return &DistributorMetrics{
		publishes:   publishes,
		subscribers: subscribers,
		panics:      panics,
	}
}

func (m *DistributorMetrics) IncPublish(bay string) {
	if m == nil || m.publishes == nil {
		return
	}
	m.publishes.WithLabelValues(normalizeLabel(bay)).Inc()
}

func (m *DistributorMetrics) SetSubscribers(bay string, count int) {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.WithLabelValues(normalizeLabel(bay)).Set(float64(count))
}

func (m *DistributorMetrics) IncPanic(bay string) {
	if m == nil || m.panics == nil {
		return
	}
	m.panics.WithLabelValues(normalizeLabel(bay)).Inc()
}
