package metrics

// LazyLoadCounter defers resolving name against the installed backend
// until first call, so package-level vars declared before
// InitializePrometheusMetrics runs still end up prometheus-backed.
func LazyLoadCounter(name string) func() Counter {
	return func() Counter { return Counter(name) }
}

// LazyLoadCounterVec is the labeled form of LazyLoadCounter.
func LazyLoadCounterVec(name string, labels []string) func() CounterVec {
	return func() CounterVec { return CounterVec(name, labels) }
}

// LazyLoadGauge is the gauge form of LazyLoadCounter.
func LazyLoadGauge(name string) func() Gauge {
	return func() Gauge { return Gauge(name) }
}

// LazyLoadGaugeVec is the labeled form of LazyLoadGauge.
func LazyLoadGaugeVec(name string, labels []string) func() GaugeVec {
	return func() GaugeVec { return GaugeVec(name, labels) }
}

// LazyLoadHistogram is the histogram form of LazyLoadCounter.
func LazyLoadHistogram(name string, buckets []int64) func() HistogramObserver {
	return func() HistogramObserver { return Histogram(name, buckets) }
}

// LazyLoadHistogramVec is the labeled form of LazyLoadHistogram.
func LazyLoadHistogramVec(name string, labels []string, buckets []int64) func() HistogramVecObserver {
	return func() HistogramVecObserver { return HistogramVec(name, labels, buckets) }
}
