// Package metrics defines the Prometheus instrumentation for the hosting
// server and bridges it onto the engine's lifecycle hooks.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// Metrics bundles the collectors for one server instance.
type Metrics struct {
	SessionsStarted prometheus.Counter
	TurnsDelivered  *prometheus.CounterVec
	NodeVisits      *prometheus.CounterVec
	InputRejects    prometheus.Counter
	LeadsSubmitted  prometheus.Counter
	SubmitFailures  prometheus.Counter
}

// New creates and registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadchat_sessions_started_total",
			Help: "Total number of widget sessions opened",
		}),
		TurnsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadchat_turns_total",
			Help: "Total transcript turns appended",
		}, []string{"speaker"}),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadchat_node_visits_total",
			Help: "Total number of node entries",
		}, []string{"node_id"}),
		InputRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadchat_input_rejects_total",
			Help: "Total submissions rejected by validation",
		}),
		LeadsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadchat_leads_submitted_total",
			Help: "Total lead submission attempts",
		}),
		SubmitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadchat_lead_submit_failures_total",
			Help: "Total lead submission attempts that failed (and were swallowed)",
		}),
	}

	reg.MustRegister(
		m.SessionsStarted,
		m.TurnsDelivered,
		m.NodeVisits,
		m.InputRejects,
		m.LeadsSubmitted,
		m.SubmitFailures,
	)
	return m
}

// RegisterActiveSessions exposes a live-session gauge backed by the session
// registry, so janitor evictions are reflected without extra bookkeeping.
func RegisterActiveSessions(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "leadchat_active_sessions",
		Help: "Number of live widget sessions",
	}, func() float64 { return float64(count()) }))
}

// Hooks returns engine lifecycle hooks that feed these collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			m.TurnsDelivered.WithLabelValues(string(e.Turn.Speaker)).Inc()
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnSubmit: func(_ context.Context, e *domain.SubmitEvent) {
			m.LeadsSubmitted.Inc()
			if e.IsError {
				m.SubmitFailures.Inc()
			}
		},
	}
}
