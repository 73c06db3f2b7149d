// Package metrics is the driver's instrumentation surface: a small set
// of counter/gauge/histogram accessors that default to no-ops and can be
// switched, once, to a prometheus.io-backed implementation exposed over
// HTTP. Lazy-loading helpers serve call sites (e.g. package sync's
// driver) that resolve their meters at package-init time, before
// InitializePrometheusMetrics has necessarily run.
package metrics

import (
	"net/http"
	"sync"
)

const namespace = "pathsync_metrics"

// CountMeter is a monotonically increasing counter.
type CountMeter interface {
	Add(n int64)
}

// CountVecMeter is a counter partitioned by label values.
type CountVecMeter interface {
	AddWithLabel(n int64, labels map[string]string)
}

// GaugeMeter is an up/down counter.
type GaugeMeter interface {
	Add(n int64)
}

// GaugeVecMeter is a gauge partitioned by label values.
type GaugeVecMeter interface {
	AddWithLabel(n int64, labels map[string]string)
}

// HistogramMeter records observed values into buckets.
type HistogramMeter interface {
	Observe(n int64)
}

// HistogramVecMeter is a histogram partitioned by label values.
type HistogramVecMeter interface {
	ObserveWithLabels(n int64, labels map[string]string)
}

// Meters is the backend a package-level accessor dispatches to: either
// defaultNoopMetrics() or, after InitializePrometheusMetrics, a
// prometheus-backed implementation.
type Meters interface {
	counter(name string) CountMeter
	counterVec(name string, labels []string) CountVecMeter
	gauge(name string) GaugeMeter
	gaugeVec(name string, labels []string) GaugeVecMeter
	histogram(name string, buckets []float64) HistogramMeter
	histogramVec(name string, labels []string, buckets []float64) HistogramVecMeter
	httpHandler() http.Handler
}

var (
	mu      sync.RWMutex
	metrics Meters = defaultNoopMetrics()
)

func current() Meters {
	mu.RLock()
	defer mu.RUnlock()
	return metrics
}

// Counter returns the named counter, creating it on first use.
func Counter(name string) CountMeter { return current().counter(name) }

// CounterVec returns the named counter partitioned by labels.
func CounterVec(name string, labels []string) CountVecMeter { return current().counterVec(name, labels) }

// Gauge returns the named gauge, creating it on first use.
func Gauge(name string) GaugeMeter { return current().gauge(name) }

// GaugeVec returns the named gauge partitioned by labels.
func GaugeVec(name string, labels []string) GaugeVecMeter { return current().gaugeVec(name, labels) }

// Histogram returns the named histogram. A nil buckets slice uses the
// backend's default bucket boundaries.
func Histogram(name string, buckets []float64) HistogramMeter { return current().histogram(name, buckets) }

// HistogramVec returns the named histogram partitioned by labels.
func HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter {
	return current().histogramVec(name, labels, buckets)
}

// HTTPHandler returns the handler the current backend serves /metrics
// with. The noop backend answers every request 404.
func HTTPHandler() http.Handler { return current().httpHandler() }

// LazyLoadCounter defers resolving name to the backend active when the
// returned function is first called, then caches the result. Useful for
// package-level accessors built at init time, before main has had a
// chance to call InitializePrometheusMetrics.
func LazyLoadCounter(name string) func() CountMeter {
	var once sync.Once
	var m CountMeter
	return func() CountMeter {
		once.Do(func() { m = Counter(name) })
		return m
	}
}

// LazyLoadCounterVec is the CounterVec analogue of LazyLoadCounter.
func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	var once sync.Once
	var m CountVecMeter
	return func() CountVecMeter {
		once.Do(func() { m = CounterVec(name, labels) })
		return m
	}
}

// LazyLoadGauge is the Gauge analogue of LazyLoadCounter.
func LazyLoadGauge(name string) func() GaugeMeter {
	var once sync.Once
	var m GaugeMeter
	return func() GaugeMeter {
		once.Do(func() { m = Gauge(name) })
		return m
	}
}

// LazyLoadGaugeVec is the GaugeVec analogue of LazyLoadCounter.
func LazyLoadGaugeVec(name string, labels []string) func() GaugeVecMeter {
	var once sync.Once
	var m GaugeVecMeter
	return func() GaugeVecMeter {
		once.Do(func() { m = GaugeVec(name, labels) })
		return m
	}
}

// LazyLoadHistogram is the Histogram analogue of LazyLoadCounter.
func LazyLoadHistogram(name string, buckets []float64) func() HistogramMeter {
	var once sync.Once
	var m HistogramMeter
	return func() HistogramMeter {
		once.Do(func() { m = Histogram(name, buckets) })
		return m
	}
}

// LazyLoadHistogramVec is the HistogramVec analogue of LazyLoadCounter.
func LazyLoadHistogramVec(name string, labels []string, buckets []float64) func() HistogramVecMeter {
	var once sync.Once
	var m HistogramVecMeter
	return func() HistogramVecMeter {
		once.Do(func() { m = HistogramVec(name, labels, buckets) })
		return m
	}
}
