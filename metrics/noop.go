package metrics

// noopMeters is the zero-cost backend installed before
// InitializePrometheusMetrics is called. Every metric kind resolves to
// the same singleton, which discards every value it is given.
type noopMeters struct{}

func defaultNoopMetrics() meters {
	return &noopMeters{}
}

func (*noopMeters) Add(int64)                                {}
func (*noopMeters) AddWithLabel(int64, map[string]string)    {}
func (*noopMeters) Observe(int64)                             {}
func (*noopMeters) ObserveWithLabels(int64, map[string]string) {}

func (n *noopMeters) counter(string) Counter                    { return n }
func (n *noopMeters) counterVec(string, []string) CounterVec    { return n }
func (n *noopMeters) gauge(string) Gauge                        { return n }
func (n *noopMeters) gaugeVec(string, []string) GaugeVec        { return n }
func (n *noopMeters) histogram(string, []int64) HistogramObserver {
	return n
}
func (n *noopMeters) histogramVec(string, []string, []int64) HistogramVecObserver {
	return n
}
