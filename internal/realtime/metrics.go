package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	subscribersGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "walklog",
		Subsystem: "realtime",
		Name:      "subscribers",
		Help:      "Number of live realtime subscribers per table.",
	}, []string{"table"})

	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walklog",
		Subsystem: "realtime",
		Name:      "changes_published_total",
		Help:      "Number of changes published to the hub.",
	}, []string{"table", "type"})

	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walklog",
		Subsystem: "realtime",
		Name:      "subscribers_dropped_total",
		Help:      "Number of subscribers dropped for falling behind.",
	}, []string{"table"})
)

func init() {
	prometheus.MustRegister(subscribersGauge, publishedCounter, droppedCounter)
}
