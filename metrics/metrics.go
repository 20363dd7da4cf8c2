// Package metrics is a thin facade over prometheus client metrics that
// defaults to a no-op implementation until InitializePrometheusMetrics
// is called. Components reach for metrics.Counter/Gauge/Histogram the
// same way they reach for log.New: freely, at package scope, without
// worrying about whether the process actually exports them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thor_metrics"

// Counter is a monotonically increasing value.
type Counter interface {
	Add(n int64)
}

// CounterVec is a Counter partitioned by label values.
type CounterVec interface {
	AddWithLabel(n int64, labels map[string]string)
}

// Gauge is a value that can go up or down.
type Gauge interface {
	Add(n int64)
}

// GaugeVec is a Gauge partitioned by label values.
type GaugeVec interface {
	AddWithLabel(n int64, labels map[string]string)
}

// HistogramObserver records individual observations.
type HistogramObserver interface {
	Observe(n int64)
}

// HistogramVecObserver is a HistogramObserver partitioned by label values.
type HistogramVecObserver interface {
	ObserveWithLabels(n int64, labels map[string]string)
}

// meters is the backend a given process installs: either the default
// no-op backend or the prometheus backend after InitializePrometheusMetrics.
type meters interface {
	counter(name string) Counter
	counterVec(name string, labels []string) CounterVec
	gauge(name string) Gauge
	gaugeVec(name string, labels []string) GaugeVec
	histogram(name string, buckets []int64) HistogramObserver
	histogramVec(name string, labels []string, buckets []int64) HistogramVecObserver
}

var metrics meters = defaultNoopMetrics()

// BucketHTTPReqs are the default bucket boundaries (milliseconds) used
// for HTTP request duration histograms.
var BucketHTTPReqs = []int64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// InitializePrometheusMetrics switches the process over to the
// prometheus-backed implementation and registers the process collector.
// Each call installs a fresh backend; the process collector is
// registered with the default registry only once, so a repeated call
// does not panic.
func InitializePrometheusMetrics() {
	metrics = newPromMetrics()
	if err := prometheus.Register(NewProcessCollector()); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}

// Counter returns the named counter, creating it on first use.
func Counter(name string) Counter { return metrics.counter(name) }

// CounterVec returns the named labeled counter, creating it on first use.
func CounterVec(name string, labels []string) CounterVec { return metrics.counterVec(name, labels) }

// Gauge returns the named gauge, creating it on first use.
func Gauge(name string) Gauge { return metrics.gauge(name) }

// GaugeVec returns the named labeled gauge, creating it on first use.
func GaugeVec(name string, labels []string) GaugeVec { return metrics.gaugeVec(name, labels) }

// Histogram returns the named histogram, creating it on first use.
func Histogram(name string, buckets []int64) HistogramObserver {
	return metrics.histogram(name, buckets)
}

// HistogramVec returns the named labeled histogram, creating it on first use.
func HistogramVec(name string, labels []string, buckets []int64) HistogramVecObserver {
	return metrics.histogramVec(name, labels, buckets)
}

// HTTPHandler returns the handler the process should mount at /metrics.
// With the no-op backend installed, it answers every request with 404,
// matching the behavior of a process that was never told to export
// metrics at all.
func HTTPHandler() http.Handler {
	if _, ok := metrics.(*noopMeters); ok {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		})
	}
	return promhttp.Handler()
}
