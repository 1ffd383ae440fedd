package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "consumer"

var (
	messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walklog",
		Subsystem: metricsSubsystem,
		Name:      "messages_total",
		Help:      "Walk event messages read, by topic, event type and result (handled, handler_error, malformed).",
	}, []string{"topic", "event_type", "result"})

	handleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walklog",
		Subsystem: metricsSubsystem,
		Name:      "handle_duration_seconds",
		Help:      "Time spent in the handler per walk event.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"event_type"})

	lastEventGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "walklog",
		Subsystem: metricsSubsystem,
		Name:      "last_event_timestamp_seconds",
		Help:      "Kafka timestamp of the newest handled walk event per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(messagesCounter, handleDuration, lastEventGauge)
}

func recordHandled(msg Message, took time.Duration) {
	messagesCounter.WithLabelValues(msg.Topic, msg.EventType, "handled").Inc()
	handleDuration.WithLabelValues(msg.EventType).Observe(took.Seconds())
	if !msg.Timestamp.IsZero() {
		lastEventGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message, took time.Duration) {
	messagesCounter.WithLabelValues(msg.Topic, msg.EventType, "handler_error").Inc()
	handleDuration.WithLabelValues(msg.EventType).Observe(took.Seconds())
}

func recordMalformed(topic string) {
	messagesCounter.WithLabelValues(topic, "", "malformed").Inc()
}
