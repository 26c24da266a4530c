package host

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts board activity.
type Metrics struct {
	mu sync.Mutex

	drops      *prometheus.CounterVec
	interrupts *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

// NewMetrics creates the board collectors. A nil registerer means the
// default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer: registerer,
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firmlet",
			Subsystem: "board",
			Name:      "queue_drops_total",
			Help:      "Items dropped because a bounded board queue was full",
		}, []string{"queue"}),
		interrupts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firmlet",
			Subsystem: "board",
			Name:      "interrupts_total",
			Help:      "Interrupt handler runs by line",
		}, []string{"line"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered {
		return nil
	}
	for _, c := range []prometheus.Collector{m.drops, m.interrupts} {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

func (m *Metrics) recordDrop(queue string) {
	if m != nil {
		m.drops.WithLabelValues(queue).Inc()
	}
}

func (m *Metrics) recordInterrupt(line string) {
	if m != nil {
		m.interrupts.WithLabelValues(line).Inc()
	}
}
