package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitializePrometheusMetrics switches the package's backend to a
// prometheus-backed implementation: every meter created from this point
// on registers itself against prometheus.DefaultRegisterer under the
// "pathsync_metrics" namespace, and HTTPHandler starts serving
// promhttp's handler instead of 404s.
func InitializePrometheusMetrics() {
	mu.Lock()
	defer mu.Unlock()
	metrics = newPrometheusMeters()
	processOnce.Do(registerProcessCollectors)
}

var processOnce sync.Once

type prometheusMeters struct {
	mu            sync.Mutex
	counters      map[string]prometheus.Counter
	counterVecs   map[string]*prometheus.CounterVec
	gauges        map[string]prometheus.Gauge
	gaugeVecs     map[string]*prometheus.GaugeVec
	histograms    map[string]prometheus.Histogram
	histogramVecs map[string]*prometheus.HistogramVec
}

func newPrometheusMeters() *prometheusMeters {
	return &prometheusMeters{
		counters:      make(map[string]prometheus.Counter),
		counterVecs:   make(map[string]*prometheus.CounterVec),
		gauges:        make(map[string]prometheus.Gauge),
		gaugeVecs:     make(map[string]*prometheus.GaugeVec),
		histograms:    make(map[string]prometheus.Histogram),
		histogramVecs: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *prometheusMeters) counter(name string) CountMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name})
		prometheus.MustRegister(c)
		p.counters[name] = c
	}
	return &promCountMeter{c}
}

func (p *prometheusMeters) counterVec(name string, labels []string) CountVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.counterVecs[name]
	if !ok {
		v = prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name}, labels)
		prometheus.MustRegister(v)
		p.counterVecs[name] = v
	}
	return &promCountVecMeter{v}
}

func (p *prometheusMeters) gauge(name string) GaugeMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name})
		prometheus.MustRegister(g)
		p.gauges[name] = g
	}
	return &promGaugeMeter{g}
}

func (p *prometheusMeters) gaugeVec(name string, labels []string) GaugeVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.gaugeVecs[name]
	if !ok {
		v = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name}, labels)
		prometheus.MustRegister(v)
		p.gaugeVecs[name] = v
	}
	return &promGaugeVecMeter{v}
}

func (p *prometheusMeters) histogram(name string, buckets []float64) HistogramMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: name, Buckets: defaultBuckets(buckets)})
		prometheus.MustRegister(h)
		p.histograms[name] = h
	}
	return &promHistogramMeter{h}
}

func (p *prometheusMeters) histogramVec(name string, labels []string, buckets []float64) HistogramVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.histogramVecs[name]
	if !ok {
		v = prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Buckets: defaultBuckets(buckets)}, labels)
		prometheus.MustRegister(v)
		p.histogramVecs[name] = v
	}
	return &promHistogramVecMeter{v}
}

func defaultBuckets(b []float64) []float64 {
	if len(b) == 0 {
		return prometheus.DefBuckets
	}
	return b
}

func (p *prometheusMeters) httpHandler() http.Handler { return promhttp.Handler() }

type promCountMeter struct{ c prometheus.Counter }

func (m *promCountMeter) Add(n int64) { m.c.Add(float64(n)) }

type promCountVecMeter struct{ v *prometheus.CounterVec }

func (m *promCountVecMeter) AddWithLabel(n int64, labels map[string]string) {
	m.v.With(prometheus.Labels(labels)).Add(float64(n))
}

type promGaugeMeter struct{ g prometheus.Gauge }

func (m *promGaugeMeter) Add(n int64) { m.g.Add(float64(n)) }

type promGaugeVecMeter struct{ v *prometheus.GaugeVec }

func (m *promGaugeVecMeter) AddWithLabel(n int64, labels map[string]string) {
	m.v.With(prometheus.Labels(labels)).Add(float64(n))
}

type promHistogramMeter struct{ h prometheus.Histogram }

func (m *promHistogramMeter) Observe(n int64) { m.h.Observe(float64(n)) }

type promHistogramVecMeter struct{ v *prometheus.HistogramVec }

func (m *promHistogramVecMeter) ObserveWithLabels(n int64, labels map[string]string) {
	m.v.With(prometheus.Labels(labels)).Observe(float64(n))
}
