// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

// Package observability provides in-process Prometheus collectors for the
// auth core. Keyrack is a library: exposing the collectors over HTTP is the
// embedding application's concern.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// authOperations counts auth operations by operation and outcome.
	authOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyrack_auth_operations_total",
		Help: "Total number of auth operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// hashDuration tracks the latency of password hash and verify calls.
	hashDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "keyrack_hash_duration_seconds",
		Help:    "Histogram of password hashing latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordAuthOperation increments the operation counter.
func RecordAuthOperation(operation string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	authOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveHashDuration records one hash or verify call.
func ObserveHashDuration(d time.Duration) {
	hashDuration.Observe(d.Seconds())
}
