package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes dispatch activity as Prometheus collectors.
type Metrics struct {
	Dispatches  *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Unhandled   *prometheus.CounterVec
	Active      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_dispatch_total",
				Help: "Handler invocations, per state or superstate tried",
			},
			[]string{"machine", "state", "kind", "event"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_transitions_total",
				Help: "Committed state transitions",
			},
			[]string{"machine", "from", "to"},
		),
		Unhandled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_unhandled_total",
				Help: "Events deferred past the root of the hierarchy",
			},
			[]string{"machine", "event"},
		),
		Active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arbor_active_state",
				Help: "1 for the active leaf state of each machine, 0 otherwise",
			},
			[]string{"machine", "state"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Dispatches, m.Transitions, m.Unhandled, m.Active} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			kind := "state"
			if e.Target.Superstate {
				kind = "superstate"
			}
			m.Dispatches.WithLabelValues(e.Machine, string(e.Target.ID), kind, string(eventType(e.Event))).Inc()
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			rec := domain.NewTransitionRecord(e)
			m.Transitions.WithLabelValues(e.Machine, string(rec.From), string(rec.To)).Inc()
			m.Active.WithLabelValues(e.Machine, string(rec.From)).Set(0)
			m.Active.WithLabelValues(e.Machine, string(rec.To)).Set(1)
		},
		OnUnhandled: func(ctx context.Context, e *domain.DispatchEvent) {
			m.Unhandled.WithLabelValues(e.Machine, string(eventType(e.Event))).Inc()
		},
	}
}

// MarkActive records the initial state before any transition happened.
func (m *Metrics) MarkActive(machine string, state domain.StateID) {
	m.Active.WithLabelValues(machine, string(state)).Set(1)
}
