package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satcat_requests_total",
		Help: "Total origin calls by origin and status",
	}, []string{"origin", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "satcat_request_duration_seconds",
		Help:    "Origin call duration in seconds by origin",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"origin"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satcat_errors_total",
		Help: "Total failed origin calls by class",
	}, []string{"class"})

	coalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "satcat_coalesced_total",
		Help: "Total results delivered from a shared in-flight call",
	})

	fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "satcat_fallback_redispatch_total",
		Help: "Total requests re-dispatched to the secondary origin after a primary failure",
	})
)
