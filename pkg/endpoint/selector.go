// Package endpoint selects which of the two configured origins serves requests.
// Failover from primary to secondary is one-way for the lifetime of a Selector.
package endpoint

import (
	"strings"
	"sync/atomic"

	"github.com/Sternrassler/sat-catalog-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for origin selection.
var (
	// failedOverSelectors covers every selector in the process and never decreases.
	failedOverSelectors = promauto.With(metrics.Registry).NewGauge(prometheus.GaugeOpts{
		Name: "satcat_endpoint_failed_over_selectors",
		Help: "Number of selectors in this process that have failed over to the secondary origin",
	})

	originFailuresTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "satcat_endpoint_failures_total",
		Help: "Total failures recorded against an origin",
	}, []string{"origin"})
)

// Origin names one of the two configured data sources.
type Origin string

const (
	// Primary is the local origin tried first.
	Primary Origin = "primary"

	// Secondary is the remote origin used after failover.
	Secondary Origin = "secondary"
)

// Selector holds the active origin and the sticky failover flag.
type Selector struct {
	primaryURL   string
	secondaryURL string
	failedOver   atomic.Bool
	logger       zerolog.Logger
}

// NewSelector creates a selector that starts on the primary origin.
func NewSelector(primaryURL, secondaryURL string, logger zerolog.Logger) *Selector {
	return &Selector{
		primaryURL:   strings.TrimRight(primaryURL, "/"),
		secondaryURL: strings.TrimRight(secondaryURL, "/"),
		logger:       logger,
	}
}

// Active returns Secondary once failed over, Primary otherwise.
func (s *Selector) Active() Origin {
	if s.failedOver.Load() {
		return Secondary
	}
	return Primary
}

// FailedOver reports whether the primary has been given up on.
func (s *Selector) FailedOver() bool {
	return s.failedOver.Load()
}

// RecordFailure notes a non-cancellation failure against origin.
// A primary failure switches to the secondary permanently; repeated calls are no-ops.
func (s *Selector) RecordFailure(origin Origin, cause error) {
	originFailuresTotal.WithLabelValues(string(origin)).Inc()

	if origin != Primary {
		return
	}

	if s.failedOver.CompareAndSwap(false, true) {
		failedOverSelectors.Inc()
		s.logger.Warn().
			Err(cause).
			Str("primary", s.primaryURL).
			Str("secondary", s.secondaryURL).
			Msg("Primary origin failed, switching to secondary for the rest of the session")
	}
}

// BaseURL returns the configured base URL for origin.
func (s *Selector) BaseURL(origin Origin) string {
	if origin == Secondary {
		return s.secondaryURL
	}
	return s.primaryURL
}
