package fsprovider

import "github.com/prometheus/client_golang/prometheus"

// Metric label values.
const (
	kindLoad     = "load"
	kindUnload   = "unload"
	kindActivate = "activate"

	resultOK     = "ok"
	resultFailed = "failed"
)

var (
	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sceneloader_fs_load_seconds",
			Help:    "Duration of scene document loads from read to handle assignment, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	residentScenes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sceneloader_fs_resident_scenes",
			Help: "Number of scenes currently held by the filesystem asset system.",
		},
	)

	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sceneloader_fs_operations_total",
			Help: "Total number of filesystem asset system operations by kind and result.",
		},
		[]string{"kind", "result"},
	)

	cacheInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sceneloader_fs_cache_invalidations_total",
			Help: "Total number of cached scene documents dropped after a change on disk.",
		},
	)
)

func init() {
	prometheus.MustRegister(loadDuration)
	prometheus.MustRegister(residentScenes)
	prometheus.MustRegister(operationsTotal)
	prometheus.MustRegister(cacheInvalidationsTotal)

	for _, k := range []string{kindLoad, kindUnload, kindActivate} {
		operationsTotal.WithLabelValues(k, resultOK)
		operationsTotal.WithLabelValues(k, resultFailed)
	}
}
