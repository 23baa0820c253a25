package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prefw",
		Subsystem: "engine",
		Name:      "process_total",
		Help:      "Total work instance process calls, labelled by outcome.",
	}, []string{"outcome"})

	processInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "prefw",
		Subsystem: "engine",
		Name:      "process_inflight",
		Help:      "Process calls currently holding or waiting for an instance lock.",
	})

	processDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prefw",
		Subsystem: "engine",
		Name:      "process_duration_seconds",
		Help:      "Time from process call to persisted transition in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"outcome"})

	instancesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prefw",
		Subsystem: "engine",
		Name:      "instances_created_total",
		Help:      "Total work instances created.",
	})

	notifyPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prefw",
		Subsystem: "notify",
		Name:      "published_total",
		Help:      "Total notifications published, labelled by result.",
	}, []string{"result"})
)

// outcomeError labels process calls that did not persist a transition.
const outcomeError = "error"
