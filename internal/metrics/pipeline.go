package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	AdmissionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusegate",
			Name:      "admission_total",
			Help:      "Admission gate decisions",
		},
		[]string{"strategy", "outcome"}, // outcome: "allow" / "reject" / "defer"
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusegate",
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	FusionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusegate",
			Name:      "fusion_duration_seconds",
			Help:      "Fetch-and-fuse duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method"},
	)

	AdapterErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusegate",
			Name:      "adapter_errors_total",
			Help:      "Search adapter failures",
		},
		[]string{"adapter", "error_type"}, // error_type: "timeout" / "not_found" / "other"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(AdmissionTotal)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(FusionDuration)
	prometheus.MustRegister(AdapterErrorsTotal)
	pipelineMetricsRegistered = true
}
