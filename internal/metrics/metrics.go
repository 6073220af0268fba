// Package metrics exposes the prometheus instrumentation of the pitchfork
// service: emulator prediction traffic, run lifecycle counts, and nested
// sampling effort.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal counts emulator batch predictions by outcome.
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchfork_predictions_total",
		Help: "Total number of emulator prediction requests by outcome",
	}, []string{"emulator", "outcome"})

	// PredictionDuration tracks the latency of emulator forward passes.
	PredictionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pitchfork_prediction_duration_seconds",
		Help:    "Emulator prediction latency including engine load",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"emulator"})

	// RunsTotal counts inference runs reaching a terminal state.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchfork_runs_total",
		Help: "Total number of inference runs by terminal status",
	}, []string{"status", "runner"})

	// RunDuration tracks wall-clock time of completed sampling runs.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pitchfork_run_duration_seconds",
		Help:    "Inference run duration from claim to terminal state",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
	}, []string{"runner"})

	// RunsActive gauges runs currently executing in this process.
	RunsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pitchfork_runs_active",
		Help: "Number of inference runs executing in this process",
	})

	// SamplerIterations tracks how many nested sampling iterations runs need.
	SamplerIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitchfork_sampler_iterations",
		Help:    "Nested sampling iterations per completed run",
		Buckets: prometheus.ExponentialBuckets(100, 2, 10),
	})

	// SamplerCalls tracks likelihood evaluations per completed run.
	SamplerCalls = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitchfork_sampler_likelihood_calls",
		Help:    "Likelihood evaluations per completed run",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 12),
	})

	// ArtifactRegistrations counts watcher and API registrations by outcome.
	ArtifactRegistrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchfork_artifact_registrations_total",
		Help: "Total number of emulator artifact registrations by outcome",
	}, []string{"outcome"})
)

// ObservePrediction records one prediction request.
func ObservePrediction(emulator string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	PredictionsTotal.WithLabelValues(emulator, outcome).Inc()
	if err == nil {
		PredictionDuration.WithLabelValues(emulator).Observe(duration.Seconds())
	}
}

// ObserveRun records a run reaching a terminal state.
func ObserveRun(status, runner string, duration time.Duration) {
	RunsTotal.WithLabelValues(status, runner).Inc()
	RunDuration.WithLabelValues(runner).Observe(duration.Seconds())
}

// ObserveSampler records the effort of a finished sampling run.
func ObserveSampler(iterations, calls int) {
	SamplerIterations.Observe(float64(iterations))
	SamplerCalls.Observe(float64(calls))
}

// IncArtifactRegistration records an artifact registration attempt.
func IncArtifactRegistration(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	ArtifactRegistrations.WithLabelValues(outcome).Inc()
}
