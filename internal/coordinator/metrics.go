package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/sceneloader/internal/model"
)

// Metric label values.
const (
	resultCommitted = "committed"
	resultFailed    = "failed"
	resultCompleted = "completed"
	resultUntracked = "untracked"
	resultOK        = "ok"
)

var (
	loadRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sceneloader_load_requests_total",
			Help: "Total number of scene load requests issued to the asset system.",
		},
		[]string{"mode"},
	)

	loadResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sceneloader_load_results_total",
			Help: "Total number of scene load results observed at batch completion.",
		},
		[]string{"result"},
	)

	unregisteredScenesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sceneloader_unregistered_scene_requests_total",
			Help: "Total number of load requests for scene names missing from the catalog.",
		},
	)

	unloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sceneloader_unloads_total",
			Help: "Total number of scene unload requests by outcome.",
		},
		[]string{"result"},
	)

	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sceneloader_activations_total",
			Help: "Total number of scene activations by outcome.",
		},
		[]string{"result"},
	)

	loadedScenes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sceneloader_loaded_scenes",
			Help: "Number of scenes currently tracked in the loaded index.",
		},
	)

	batchAwaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sceneloader_batch_await_seconds",
			Help:    "Time spent waiting for every in-flight load of a batch to complete, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(loadRequestsTotal)
	prometheus.MustRegister(loadResultsTotal)
	prometheus.MustRegister(unregisteredScenesTotal)
	prometheus.MustRegister(unloadsTotal)
	prometheus.MustRegister(activationsTotal)
	prometheus.MustRegister(loadedScenes)
	prometheus.MustRegister(batchAwaitDuration)

	// Pre-initialize label combinations so they appear in /metrics from startup.
	for _, m := range []model.LoadMode{model.LoadModeSingle, model.LoadModeAdditive} {
		loadRequestsTotal.WithLabelValues(string(m))
	}
	loadResultsTotal.WithLabelValues(resultCommitted)
	loadResultsTotal.WithLabelValues(resultFailed)
	unloadsTotal.WithLabelValues(resultCompleted)
	unloadsTotal.WithLabelValues(resultFailed)
	unloadsTotal.WithLabelValues(resultUntracked)
	activationsTotal.WithLabelValues(resultOK)
	activationsTotal.WithLabelValues(resultFailed)
}
