package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/geofence/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geofence"

// Metrics records lifecycle events as Prometheus collectors.
type Metrics struct {
	transitions *prometheus.CounterVec
	mutations   *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	superseded  prometheus.Counter
	retired     *prometheus.CounterVec
	roundTrip   *prometheus.HistogramVec
	inFlight    prometheus.Gauge

	mu     sync.Mutex
	issued map[string]time.Time
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transition events routed, by kind and result.",
		}, []string{"kind", "result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_steps_issued_total",
			Help:      "Monitor calls issued, by phase and reason.",
		}, []string{"phase", "reason"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_steps_resolved_total",
			Help:      "Monitor calls resolved, by phase and result.",
		}, []string{"phase", "result"}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_superseded_total",
			Help:      "Queued mutations replaced by a newer request.",
		}),
		retired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_retired_total",
			Help:      "Regions retired by a dwell rotation.",
		}, []string{"region"}),
		roundTrip: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_step_duration_seconds",
			Help:      "Time from issuing a monitor call to its resolution.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"phase"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mutation_steps_in_flight",
			Help:      "Monitor calls issued and not yet resolved.",
		}),
		issued: make(map[string]time.Time),
	}
	for _, c := range []prometheus.Collector{
		m.transitions, m.mutations, m.resolutions, m.superseded, m.retired, m.roundTrip, m.inFlight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionRouted) {
			m.transitions.WithLabelValues(e.Event.Kind.String(), result(e.Err)).Inc()
		},
		OnMutationIssued: func(_ context.Context, e *domain.MutationEvent) {
			m.mutations.WithLabelValues(string(e.Phase), e.Reason).Inc()
			m.inFlight.Inc()
			m.mu.Lock()
			m.issued[stepKey(e)] = e.Timestamp
			m.mu.Unlock()
		},
		OnMutationResolved: func(_ context.Context, e *domain.MutationEvent) {
			m.resolutions.WithLabelValues(string(e.Phase), result(e.Err)).Inc()
			m.inFlight.Dec()
			m.mu.Lock()
			start, ok := m.issued[stepKey(e)]
			delete(m.issued, stepKey(e))
			m.mu.Unlock()
			if ok {
				m.roundTrip.WithLabelValues(string(e.Phase)).Observe(e.Timestamp.Sub(start).Seconds())
			}
		},
		OnMutationSuperseded: func(context.Context, *domain.MutationEvent) {
			m.superseded.Inc()
		},
		OnRetired: func(_ context.Context, e *domain.RetiredEvent) {
			m.retired.WithLabelValues(e.RegionID).Inc()
		},
	}
}

func stepKey(e *domain.MutationEvent) string {
	return e.MutationID + "/" + string(e.Phase)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
