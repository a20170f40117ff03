// Package metrics exposes wizard runtime events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/wizard"
)

const namespace = "wizard"

// Observer implements wizard.Observer. Create one with New and register
// it once.
type Observer struct {
	started     prometheus.Counter
	completed   prometheus.Counter
	transitions *prometheus.CounterVec
	validation  *prometheus.CounterVec
	persistence *prometheus.CounterVec
}

var _ wizard.Observer = (*Observer)(nil)

func New() *Observer {
	return &Observer{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_started_total",
			Help:      "Total number of submissions started",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_completed_total",
			Help:      "Total number of submissions completed",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of runtime transitions",
		}, []string{"transition"}), // next, prev, blocked, complete
		validation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Total number of field validation failures",
		}, []string{"field_type"}),
		persistence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Total number of failed durable writes",
		}, []string{"op"}),
	}
}

func (o *Observer) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{o.started, o.completed, o.transitions, o.validation, o.persistence} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (o *Observer) Started() {
	o.started.Inc()
}

func (o *Observer) Transition(t wizard.Transition) {
	o.transitions.WithLabelValues(string(t)).Inc()
	if t == wizard.TransitionComplete {
		o.completed.Inc()
	}
}

func (o *Observer) ValidationFailed(fieldType model.FieldType) {
	o.validation.WithLabelValues(string(fieldType)).Inc()
}

func (o *Observer) PersistenceFailed(op string) {
	o.persistence.WithLabelValues(op).Inc()
}
