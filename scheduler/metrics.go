package scheduler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts scheduler activity.
type Metrics struct {
	mu sync.Mutex

	dispatched *prometheus.CounterVec
	unhandled  *prometheus.CounterVec
	purged     prometheus.Counter
	traps      *prometheus.CounterVec
	hostErrors *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firmlet",
			Subsystem: "scheduler",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewMetrics creates the scheduler collectors. A nil registerer means the
// default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer: registerer,
		dispatched: newCounterVec("events_dispatched_total", "Events delivered to an applet callback", []string{"kind"}),
		unhandled:  newCounterVec("events_unhandled_total", "Events dropped because no handler was registered", []string{"kind"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firmlet",
			Subsystem: "scheduler",
			Name:      "events_purged_total",
			Help:      "Queued events removed when their handler was unregistered",
		}),
		traps:      newCounterVec("traps_total", "Applet traps by policy applied", []string{"policy"}),
		hostErrors: newCounterVec("host_call_errors_total", "Host functions that returned an error code", []string{"link"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	collectors := []prometheus.Collector{m.dispatched, m.unhandled, m.purged, m.traps, m.hostErrors}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

// The record methods accept a nil receiver so an unmetered scheduler needs
// no checks.

func (m *Metrics) recordDispatched(kind string) {
	if m != nil {
		m.dispatched.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) recordUnhandled(kind string) {
	if m != nil {
		m.unhandled.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) recordPurged(n int) {
	if m != nil && n > 0 {
		m.purged.Add(float64(n))
	}
}

func (m *Metrics) recordTrap(policy string) {
	if m != nil {
		m.traps.WithLabelValues(policy).Inc()
	}
}

func (m *Metrics) recordHostError(link string) {
	if m != nil {
		m.hostErrors.WithLabelValues(link).Inc()
	}
}
