package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// NetworksObserved counts upsert_network calls from the scan loop (one
	// per AP row per sweep, repeats included), by encryption.
	NetworksObserved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pendonn",
			Name:      "networks_observed_total",
			Help:      "Total number of networks seen by the scan loop",
		},
		[]string{"encryption"},
	)

	// CapturesStarted counts capture sessions opened by the capture engine.
	CapturesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pendonn",
			Name:      "captures_started_total",
			Help:      "Total number of capture sessions started",
		},
		[]string{},
	)

	// CapturesFinished counts capture sessions by terminal outcome.
	CapturesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pendonn",
			Name:      "captures_finished_total",
			Help:      "Total number of capture sessions finished by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveCaptures tracks the live capture count; must never exceed 1.
	ActiveCaptures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pendonn",
			Name:      "active_captures",
			Help:      "Number of capture sessions currently active",
		},
	)

	// DeauthBurstsSent counts deauth bursts issued by the capture engine.
	DeauthBurstsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pendonn",
			Name:      "deauth_bursts_total",
			Help:      "Total number of deauth bursts sent",
		},
		[]string{"outcome"},
	)

	// CrackAttempts counts cracking engine invocations by engine and outcome.
	CrackAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pendonn",
			Name:      "crack_attempts_total",
			Help:      "Total number of crack engine invocations",
		},
		[]string{"engine", "outcome"},
	)

	// EnumerationRuns counts enumeration phase executions by outcome.
	EnumerationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pendonn",
			Name:      "enumeration_runs_total",
			Help:      "Total number of enumeration phase runs",
		},
		[]string{"outcome"},
	)

	// EnumerationActive is 1 while the enumeration phase holds the radio.
	EnumerationActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pendonn",
			Name:      "enumeration_active",
			Help:      "1 while the enumeration phase has seized the radio, 0 otherwise",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// Idempotent: safe to call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(NetworksObserved)
		prometheus.DefaultRegisterer.Register(CapturesStarted)
		prometheus.DefaultRegisterer.Register(CapturesFinished)
		prometheus.DefaultRegisterer.Register(ActiveCaptures)
		prometheus.DefaultRegisterer.Register(DeauthBurstsSent)
		prometheus.DefaultRegisterer.Register(CrackAttempts)
		prometheus.DefaultRegisterer.Register(EnumerationRuns)
		prometheus.DefaultRegisterer.Register(EnumerationActive)
	})
}
