package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/walklog/internal/domain"
)

var (
	outcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walklog",
		Subsystem: "reconcile",
		Name:      "notifications_total",
		Help:      "Webhook notifications reconciled, labeled by terminal outcome.",
	}, []string{"outcome"})

	reconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "walklog",
		Subsystem: "reconcile",
		Name:      "duration_seconds",
		Help:      "Time spent reconciling a single notification.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(outcomeCounter, reconcileDuration)
	for _, o := range domain.Outcomes() {
		outcomeCounter.WithLabelValues(o.String())
	}
}

func observeOutcome(outcome domain.Outcome, elapsed time.Duration) {
	outcomeCounter.WithLabelValues(outcome.String()).Inc()
	reconcileDuration.Observe(elapsed.Seconds())
}
