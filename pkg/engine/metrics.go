package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("viewmodel.engine")

var (
	// mutationsTotal counts worker turns by mutation kind and result
	// (applied, skipped on an empty view model, discarded after destroy).
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viewmodel_engine_mutations_total",
		Help: "Worker mutation turns by kind and result",
	}, []string{"kind", "result"})

	// callbackDuration tracks how long observer callbacks hold the lock.
	callbackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "viewmodel_engine_callback_duration_seconds",
		Help:    "Observer callback duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	}, []string{"kind"})

	workersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "viewmodel_engine_workers_running",
		Help: "Workers that have started and not yet exited",
	})

	handlesLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "viewmodel_engine_handles_live",
		Help: "Handles created and not yet destroyed",
	})
)

const (
	resultApplied   = "applied"
	resultSkipped   = "skipped"
	resultDiscarded = "discarded"
)
