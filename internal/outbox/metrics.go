package outbox

import "github.com/prometheus/client_golang/prometheus"

// Per-event publish results.
const (
	resultDelivered    = "delivered"
	resultDeadLettered = "dead_lettered"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walklog",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Walk events drained from the outbox, by event type and result.",
	}, []string{"event_type", "result"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "walklog",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time from claiming an outbox batch to marking it published.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(eventsCounter, batchDuration)
}

func recordResult(messages []Message, result string) {
	for _, msg := range messages {
		eventsCounter.WithLabelValues(msg.EventType, result).Inc()
	}
}
