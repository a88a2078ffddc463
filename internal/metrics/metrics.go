// Package metrics holds the Prometheus collectors recorded while provisioning.
//
// The CLI is short-lived, so nothing is served over HTTP. The registry is
// dumped in node-exporter textfile format on exit when --metrics-file is set.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/vnfstack/internal/cloud"
)

// Registry holds every vnfstack collector.
var Registry = prometheus.NewRegistry()

var (
	apiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vnfstack",
			Subsystem: "cloud",
			Name:      "api_calls_total",
			Help:      "Total number of control-plane API calls by provider, operation and result",
		},
		[]string{"provider", "operation", "result"},
	)

	apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vnfstack",
			Subsystem: "cloud",
			Name:      "api_latency_seconds",
			Help:      "Latency of control-plane API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider", "operation"},
	)

	pollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vnfstack",
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Total number of condition evaluations by poll operation",
		},
		[]string{"operation"},
	)

	pollOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vnfstack",
			Subsystem: "poll",
			Name:      "outcomes_total",
			Help:      "Total number of finished polls by operation and outcome (done, timeout, aborted)",
		},
		[]string{"operation", "outcome"},
	)

	floatingIPBindAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vnfstack",
			Subsystem: "instance",
			Name:      "floating_ip_bind_attempts_total",
			Help:      "Total number of floating IP bind attempts by result",
		},
		[]string{"result"},
	)

	instanceTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vnfstack",
			Subsystem: "instance",
			Name:      "status_transitions_total",
			Help:      "Total number of observed instance status transitions by new status",
		},
		[]string{"status"},
	)

	instanceBootDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vnfstack",
			Subsystem: "instance",
			Name:      "boot_duration_seconds",
			Help:      "Time from create request until the instance reported ACTIVE",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 9), // 5s to ~21min
		},
	)

	phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vnfstack",
			Subsystem: "pipeline",
			Name:      "phase_duration_seconds",
			Help:      "Duration of provisioning phases by phase and result",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 500ms to ~17min
		},
		[]string{"phase", "result"},
	)

	instanceReachableDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vnfstack",
			Subsystem: "instance",
			Name:      "reachable_duration_seconds",
			Help:      "Time spent waiting for an instance to accept SSH sessions",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~4min
		},
	)
)

func init() {
	Registry.MustRegister(
		apiCallsTotal,
		apiLatency,
		pollCyclesTotal,
		pollOutcomesTotal,
		floatingIPBindAttemptsTotal,
		instanceTransitionsTotal,
		instanceBootDuration,
		instanceReachableDuration,
		phaseDuration,
	)
}

// Poll outcomes.
const (
	OutcomeDone    = "done"
	OutcomeTimeout = "timeout"
	OutcomeAborted = "aborted"
)

// RecordAPICall records a control-plane call. The result label is "success"
// or the error kind.
func RecordAPICall(provider, operation string, err error, latency time.Duration) {
	result := "success"
	if err != nil {
		result = cloud.KindOf(err).String()
	}
	apiCallsTotal.WithLabelValues(provider, operation, result).Inc()
	apiLatency.WithLabelValues(provider, operation).Observe(latency.Seconds())
}

// RecordPollCycle records one condition evaluation.
func RecordPollCycle(operation string) {
	pollCyclesTotal.WithLabelValues(operation).Inc()
}

// RecordPollOutcome records how a poll finished.
func RecordPollOutcome(operation, outcome string) {
	pollOutcomesTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordBindAttempt records a floating IP bind attempt.
func RecordBindAttempt(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	floatingIPBindAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordTransition records an observed instance status change.
func RecordTransition(status cloud.ServerStatus) {
	instanceTransitionsTotal.WithLabelValues(string(status)).Inc()
}

// ObserveBoot records how long an instance took to become ACTIVE.
func ObserveBoot(d time.Duration) {
	instanceBootDuration.Observe(d.Seconds())
}

// ObserveReachable records how long an instance took to accept SSH.
func ObserveReachable(d time.Duration) {
	instanceReachableDuration.Observe(d.Seconds())
}

// ObservePhase records a finished phase.
func ObservePhase(phase string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	phaseDuration.WithLabelValues(phase, result).Observe(d.Seconds())
}

// WriteTextfile writes the registry to path in textfile collector format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
