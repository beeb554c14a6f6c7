package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bankeu",
		Name:      "proposal_transitions_total",
		Help:      "Committed proposal transitions by authority and action.",
	}, []string{"authority", "action"})

	transitionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bankeu",
		Name:      "proposal_transition_failures_total",
		Help:      "Rejected proposal transitions by error kind.",
	}, []string{"kind"})

	assignmentConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bankeu",
		Name:      "assignment_conflicts_total",
		Help:      "Assignment batches refused because a village was already held.",
	})

	sideEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bankeu",
		Name:      "side_effect_failures_total",
		Help:      "Post-commit side effects that failed.",
	}, []string{"hook"})
)

func recordFailure(err error) {
	kind := KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	transitionFailuresTotal.WithLabelValues(string(kind)).Inc()
}
