package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/spindle/pkg/domain"
)

const namespace = "spindle"

// Outcome label values.
const (
	OutcomeQueued    = "queued"
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeDropped   = "dropped"
	OutcomeHandled   = "handled"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeEmitted   = "emitted"
	OutcomeStarted   = "started"
	OutcomeCompleted = "completed"
)

// Metrics is the set of collectors fed by MetricsHooks. Every vector is labelled by
// ViewModel name.
type Metrics struct {
	Inputs          *prometheus.CounterVec
	Events          *prometheus.CounterVec
	SideJobs        *prometheus.CounterVec
	SideJobsRunning *prometheus.GaugeVec
	States          *prometheus.CounterVec
	Unhandled       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Inputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewmodel",
			Name:      "inputs_total",
			Help:      "Inputs by processing outcome.",
		}, []string{"viewmodel", "outcome"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewmodel",
			Name:      "events_total",
			Help:      "Events by delivery outcome.",
		}, []string{"viewmodel", "outcome"}),
		SideJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewmodel",
			Name:      "side_jobs_total",
			Help:      "Side-jobs by key, restart state and outcome.",
		}, []string{"viewmodel", "key", "restart", "outcome"}),
		SideJobsRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "viewmodel",
			Name:      "side_jobs_running",
			Help:      "Side-jobs currently running, by key.",
		}, []string{"viewmodel", "key"}),
		States: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewmodel",
			Name:      "states_total",
			Help:      "State emissions and restores.",
		}, []string{"viewmodel", "outcome"}),
		Unhandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewmodel",
			Name:      "unhandled_errors_total",
			Help:      "Errors that reached the unhandled sink.",
		}, []string{"viewmodel"}),
	}
	if reg != nil {
		reg.MustRegister(m.Inputs, m.Events, m.SideJobs, m.SideJobsRunning, m.States, m.Unhandled)
	}
	return m
}

// MetricsHooks records the traffic of the ViewModel called name into m.
func MetricsHooks[I, E, S any](m *Metrics, name string) domain.Hooks[I, E, S] {
	input := func(outcome string) func(context.Context, I) {
		c := m.Inputs.WithLabelValues(name, outcome)
		return func(context.Context, I) { c.Inc() }
	}
	event := func(outcome string) func(context.Context, E) {
		c := m.Events.WithLabelValues(name, outcome)
		return func(context.Context, E) { c.Inc() }
	}
	sideJob := func(outcome string, running float64) func(context.Context, string, domain.RestartState) {
		return func(_ context.Context, key string, rs domain.RestartState) {
			m.SideJobs.WithLabelValues(name, key, rs.String(), outcome).Inc()
			m.SideJobsRunning.WithLabelValues(name, key).Add(running)
		}
	}
	failed := m.Inputs.WithLabelValues(name, OutcomeFailed)
	eventFailed := m.Events.WithLabelValues(name, OutcomeFailed)
	emitted := m.States.WithLabelValues(name, OutcomeEmitted)
	restored := m.States.WithLabelValues(name, "restored")
	unhandled := m.Unhandled.WithLabelValues(name)

	return domain.Hooks[I, E, S]{
		OnInputQueued:              input(OutcomeQueued),
		OnInputAccepted:            input(OutcomeAccepted),
		OnInputRejected:            input(OutcomeRejected),
		OnInputDropped:             input(OutcomeDropped),
		OnInputHandledSuccessfully: input(OutcomeHandled),
		OnInputCancelled:           input(OutcomeCancelled),
		OnInputHandlerError:        func(context.Context, I, error) { failed.Inc() },

		OnEventEmitted:             event(OutcomeEmitted),
		OnEventHandledSuccessfully: event(OutcomeHandled),
		OnEventHandlerError:        func(context.Context, E, error) { eventFailed.Inc() },

		OnStateEmitted:  func(context.Context, S) { emitted.Inc() },
		OnStateRestored: func(context.Context, S) { restored.Inc() },

		OnSideJobStarted:   sideJob(OutcomeStarted, 1),
		OnSideJobCompleted: sideJob(OutcomeCompleted, -1),
		OnSideJobCancelled: sideJob(OutcomeCancelled, -1),
		OnSideJobError: func(ctx context.Context, key string, rs domain.RestartState, _ error) {
			sideJob(OutcomeFailed, -1)(ctx, key, rs)
		},

		OnUnhandledError: func(context.Context, error) { unhandled.Inc() },
	}
}
