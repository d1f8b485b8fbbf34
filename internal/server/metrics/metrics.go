// Package metrics holds the Prometheus collectors of the auth server.
// Collectors register with the default registry, which GET /metrics exposes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for AuthOperations.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	// PasswordHashDuration tracks bcrypt latency, including time spent
	// waiting for a hashing slot.
	PasswordHashDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopkeeper_password_hash_seconds",
		Help:    "Histogram of password hash and verify latency in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})

	// AuthOperations counts session operations by outcome.
	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopkeeper_auth_operations_total",
		Help: "Total number of auth operations by operation and outcome",
	}, []string{"operation", "outcome"})
)

// ObservePasswordHash records one hash or verify call that started at start.
func ObservePasswordHash(op string, start time.Time) {
	PasswordHashDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordAuthOperation counts one finished operation.
func RecordAuthOperation(operation, outcome string) {
	AuthOperations.WithLabelValues(operation, outcome).Inc()
}
