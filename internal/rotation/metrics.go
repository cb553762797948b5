package rotation

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	runsTotal        *prometheus.CounterVec
	assignmentsTotal *prometheus.CounterVec
	unfilledTotal    *prometheus.CounterVec
	prunedTotal      prometheus.Counter
	duration         *prometheus.HistogramVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rotation",
			Name:      "generate_runs_total",
			Help:      "Total number of schedule generations broken down by result.",
		}, []string{"mode", "result"}),
		assignmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rotation",
			Name:      "assignments_written_total",
			Help:      "Total number of assignment rows upserted by generations.",
		}, []string{"track", "role"}),
		unfilledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rotation",
			Name:      "unfilled_total",
			Help:      "Service-date roles left without an organist.",
		}, []string{"role", "reason"}),
		prunedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "rotation",
			Name:      "pruned_assignments_total",
			Help:      "Assignment rows deleted before regenerating a window.",
		}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rotation",
			Name:      "generate_duration_seconds",
			Help:      "Latency distribution for schedule generation.",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05,
				0.1, 0.25, 0.5,
				1, 2.5, 5,
			},
		}, []string{"mode"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

func recordRun(mode, result string, seconds float64) {
	m := getMetrics()
	m.runsTotal.WithLabelValues(mode, result).Inc()
	m.duration.WithLabelValues(mode).Observe(seconds)
}
