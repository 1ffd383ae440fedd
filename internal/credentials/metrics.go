package credentials

import "github.com/prometheus/client_golang/prometheus"

const (
	resultReused      = "reused"
	resultRefreshed   = "refreshed"
	resultRejected    = "rejected"
	resultUnavailable = "unavailable"
	resultStoreError  = "store_error"
)

var refreshCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "walklog",
	Subsystem: "credentials",
	Name:      "token_checks_total",
	Help:      "Access token checks grouped by whether the stored token was reused or refreshed.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(refreshCounter)
}
