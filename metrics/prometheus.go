package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// promCountMeter adapts a scalar prometheus.Counter to Counter.
type promCountMeter struct {
	c prometheus.Counter
}

func (m *promCountMeter) Add(n int64) { m.c.Add(float64(n)) }

// promCountVecMeter adapts a prometheus.CounterVec to CounterVec.
type promCountVecMeter struct {
	c      *prometheus.CounterVec
	labels []string
}

func (m *promCountVecMeter) AddWithLabel(n int64, labels map[string]string) {
	m.c.With(selectLabels(labels, m.labels)).Add(float64(n))
}

// promGaugeMeter adapts a scalar prometheus.Gauge to Gauge.
type promGaugeMeter struct {
	g prometheus.Gauge
}

func (m *promGaugeMeter) Add(n int64) { m.g.Add(float64(n)) }

// promGaugeVecMeter adapts a prometheus.GaugeVec to GaugeVec.
type promGaugeVecMeter struct {
	g      *prometheus.GaugeVec
	labels []string
}

func (m *promGaugeVecMeter) AddWithLabel(n int64, labels map[string]string) {
	m.g.With(selectLabels(labels, m.labels)).Add(float64(n))
}

// promHistogramMeter adapts a scalar prometheus.Histogram to HistogramObserver.
type promHistogramMeter struct {
	h prometheus.Histogram
}

func (m *promHistogramMeter) Observe(n int64) { m.h.Observe(float64(n)) }

// promHistogramVecMeter adapts a prometheus.HistogramVec to HistogramVecObserver.
type promHistogramVecMeter struct {
	h      *prometheus.HistogramVec
	labels []string
}

func (m *promHistogramVecMeter) ObserveWithLabels(n int64, labels map[string]string) {
	m.h.With(selectLabels(labels, m.labels)).Observe(float64(n))
}

// selectLabels narrows an arbitrary label map down to the names the
// vec was declared with, so a caller passing unrelated extra keys
// (harmless under the no-op backend) doesn't panic against prometheus.
func selectLabels(labels map[string]string, names []string) prometheus.Labels {
	out := make(prometheus.Labels, len(names))
	for _, n := range names {
		out[n] = labels[n]
	}
	return out
}

func floatBuckets(buckets []int64) []float64 {
	if len(buckets) == 0 {
		return prometheus.DefBuckets
	}
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = float64(b)
	}
	return out
}

// promMetrics is the backend installed by InitializePrometheusMetrics.
// Every accessor lazily creates and registers its collector on first
// use, then caches it by name for subsequent calls.
type promMetrics struct {
	mu sync.Mutex

	counters     map[string]*promCountMeter
	counterVecs  map[string]*promCountVecMeter
	gauges       map[string]*promGaugeMeter
	gaugeVecs    map[string]*promGaugeVecMeter
	histograms   map[string]*promHistogramMeter
	histogramVecs map[string]*promHistogramVecMeter
}

func newPromMetrics() *promMetrics {
	return &promMetrics{
		counters:      make(map[string]*promCountMeter),
		counterVecs:   make(map[string]*promCountVecMeter),
		gauges:        make(map[string]*promGaugeMeter),
		gaugeVecs:     make(map[string]*promGaugeVecMeter),
		histograms:    make(map[string]*promHistogramMeter),
		histogramVecs: make(map[string]*promHistogramVecMeter),
	}
}

func (p *promMetrics) counter(name string) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.counters[name]; ok {
		return m
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name})
	prometheus.MustRegister(c)
	m := &promCountMeter{c: c}
	p.counters[name] = m
	return m
}

func (p *promMetrics) counterVec(name string, labels []string) CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.counterVecs[name]; ok {
		return m
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name}, labels)
	prometheus.MustRegister(c)
	m := &promCountVecMeter{c: c, labels: labels}
	p.counterVecs[name] = m
	return m
}

func (p *promMetrics) gauge(name string) Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.gauges[name]; ok {
		return m
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name})
	prometheus.MustRegister(g)
	m := &promGaugeMeter{g: g}
	p.gauges[name] = m
	return m
}

func (p *promMetrics) gaugeVec(name string, labels []string) GaugeVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.gaugeVecs[name]; ok {
		return m
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name}, labels)
	prometheus.MustRegister(g)
	m := &promGaugeVecMeter{g: g, labels: labels}
	p.gaugeVecs[name] = m
	return m
}

func (p *promMetrics) histogram(name string, buckets []int64) HistogramObserver {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.histograms[name]; ok {
		return m
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Buckets: floatBuckets(buckets),
	})
	prometheus.MustRegister(h)
	m := &promHistogramMeter{h: h}
	p.histograms[name] = m
	return m
}

func (p *promMetrics) histogramVec(name string, labels []string, buckets []int64) HistogramVecObserver {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.histogramVecs[name]; ok {
		return m
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Buckets: floatBuckets(buckets),
	}, labels)
	prometheus.MustRegister(h)
	m := &promHistogramVecMeter{h: h, labels: labels}
	p.histogramVecs[name] = m
	return m
}
