package abac

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal       *prometheus.CounterVec
	guardDenialsTotal    prometheus.Counter
	expansionTruncated   *prometheus.CounterVec
	initEvaluatorMetrics sync.Once
)

// InitMetrics registers the evaluator/guard counters under reg. Safe to
// call multiple times; only the first call registers.
func InitMetrics(reg prometheus.Registerer) {
	initEvaluatorMetrics.Do(func() {
		f := promauto.With(reg)
		decisionsTotal = f.NewCounterVec(prometheus.CounterOpts{
			Name: "iam_authz_decisions_total",
			Help: "Total authorization decisions made by the evaluator.",
		}, []string{"allow"})
		guardDenialsTotal = f.NewCounter(prometheus.CounterOpts{
			Name: "iam_guard_denials_total",
			Help: "Total collection mutations denied by the self-governed guard.",
		})
		expansionTruncated = f.NewCounterVec(prometheus.CounterOpts{
			Name: "iam_expansion_truncated_total",
			Help: "Total ABAC expansions that hit MaxDepth or MaxRows before exhausting the graph.",
		}, []string{"relation"})
	})
}

func recordDecision(allow bool) {
	if decisionsTotal == nil {
		return
	}
	v := "false"
	if allow {
		v = "true"
	}
	decisionsTotal.WithLabelValues(v).Inc()
}

func recordGuardDenial() {
	if guardDenialsTotal != nil {
		guardDenialsTotal.Inc()
	}
}

func recordExpansionTruncated(relation Relation) {
	if expansionTruncated != nil {
		expansionTruncated.WithLabelValues(string(relation)).Inc()
	}
}

// RecordExpansionTruncated exposes recordExpansionTruncated to Expander
// implementations outside this package (internal/store's single recursive-
// query expansion has no per-hop loop of its own to call it from inline).
func RecordExpansionTruncated(relation Relation) {
	recordExpansionTruncated(relation)
}
