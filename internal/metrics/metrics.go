// Package metrics exposes Prometheus collectors for the image gateway.
//
//	metrics.Register()
//	http.Handle("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts gRPC calls by method and status code
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_gateway_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	// RequestDuration observes gRPC call latency
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_gateway_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// UploadedBytes counts payload bytes accepted by storage
	UploadedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_gateway_uploaded_bytes_total",
			Help: "Total bytes of images stored",
		},
	)

	// ValidationRejections counts files refused before upload
	ValidationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_gateway_validation_rejections_total",
			Help: "Number of files rejected by validation",
		},
		[]string{"reason"},
	)

	registry = prometheus.NewRegistry()
	once     sync.Once
)

// Register adds runtime and gateway collectors to the registry. Safe to call more than once.
func Register() {
	once.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			RequestCounter,
			RequestDuration,
			UploadedBytes,
			ValidationRejections,
		)
	})
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the registry backing Handler
func GetRegistry() *prometheus.Registry {
	return registry
}
