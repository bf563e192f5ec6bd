// Package metrics exposes Prometheus metrics for the interview pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage label values.
const (
	StageUpload     = "upload"
	StageTranscode  = "transcode"
	StageTranscribe = "transcribe"
	StageReply      = "reply"
	StageSynthesize = "synthesize"
	StageSummary    = "summary"
)

// Metrics contains all Prometheus metrics for the coach backend.
type Metrics struct {
	// Session lifecycle
	SessionsCreated prometheus.Counter
	SessionsEnded   prometheus.Counter
	SessionsEvicted prometheus.Counter
	ActiveSessions  prometheus.Gauge

	// Turn pipeline
	TurnsStarted   prometheus.Counter
	TurnsCompleted prometheus.Counter
	TurnsDegraded  prometheus.Counter
	StageFailures  *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
}

// New creates and registers all metrics with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "coach_sessions_created_total",
			Help: "Total number of interview sessions created",
		}),
		SessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "coach_sessions_ended_total",
			Help: "Total number of sessions ended explicitly by the client",
		}),
		SessionsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "coach_sessions_evicted_total",
			Help: "Total number of sessions removed by the idle sweeper",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coach_active_sessions",
			Help: "Current number of live sessions",
		}),

		TurnsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "coach_turns_started_total",
			Help: "Total number of turns received",
		}),
		TurnsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "coach_turns_completed_total",
			Help: "Total number of turns that returned a result",
		}),
		TurnsDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "coach_turns_degraded_total",
			Help: "Turns that completed without synthesized audio",
		}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_stage_failures_total",
			Help: "Pipeline stage failures by stage",
		}, []string{"stage"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coach_stage_duration_seconds",
			Help:    "Time spent per pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"stage"}),
	}
}
