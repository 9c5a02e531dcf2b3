// ABOUTME: Prometheus metrics for tone playback
// ABOUTME: Counters, gauges and histograms updated from the engine and its callback
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sendspin_tone_active_streams",
		Help: "Number of output streams currently playing",
	})
)

// Counters
var (
	StreamsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sendspin_tone_streams_started_total",
		Help: "Total output streams started",
	})
	SetupFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendspin_tone_setup_failures_total",
		Help: "Engine construction failures by step",
	}, []string{"step"})
	BuffersFilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sendspin_tone_buffers_filled_total",
		Help: "Total device buffers filled by the audio callback",
	})
	SamplesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sendspin_tone_samples_generated_total",
		Help: "Total oscillator samples written, one per buffer slot",
	})
	StreamErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sendspin_tone_stream_errors_total",
		Help: "Asynchronous errors reported by the audio host",
	})
	StreamErrorsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sendspin_tone_stream_errors_dropped_total",
		Help: "Asynchronous errors dropped because the error queue was full",
	})
)

// Histograms
var (
	FillDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sendspin_tone_fill_duration_us",
		Help:    "Time spent inside the audio callback in microseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
)
