// Package observability holds process-wide Prometheus collectors for the walk log.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	walkPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walklog",
		Subsystem: "persistence",
		Name:      "last_walk_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent walk inserted into Postgres.",
	})
	walkUpdatedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walklog",
		Subsystem: "persistence",
		Name:      "last_walk_updated_timestamp_seconds",
		Help:      "Unix timestamp of the most recent imported walk updated from Strava.",
	})
	badgeEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walklog",
		Subsystem: "badges",
		Name:      "evaluations_total",
		Help:      "Badge evaluations triggered after walk inserts, labeled by result.",
	}, []string{"result"})
	webhookRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walklog",
		Subsystem: "webhook",
		Name:      "requests_total",
		Help:      "Strava webhook requests grouped by kind and response status.",
	}, []string{"kind", "status"})
)

func init() {
	prometheus.MustRegister(walkPersistGauge, walkUpdatedGauge, badgeEvaluations, webhookRequests)
}

// RecordWalkPersisted updates the insert watermark gauge.
func RecordWalkPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	walkPersistGauge.Set(float64(ts.Unix()))
}

// RecordWalkUpdated updates the update watermark gauge.
func RecordWalkUpdated(ts time.Time) {
	if ts.IsZero() {
		return
	}
	walkUpdatedGauge.Set(float64(ts.Unix()))
}

// RecordBadgeEvaluation counts a badge evaluation attempt.
func RecordBadgeEvaluation(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	badgeEvaluations.WithLabelValues(result).Inc()
}

// RecordWebhookRequest counts an inbound webhook request. kind is "event" or "handshake".
func RecordWebhookRequest(kind, status string) {
	webhookRequests.WithLabelValues(kind, status).Inc()
}
