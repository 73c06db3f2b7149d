package metrics

import "net/http"

// noopMeters is the default backend: every accessor returns the same
// value receiver, whose methods all discard their inputs. Safe for
// concurrent use without synchronization since it holds no state.
type noopMeters struct{}

func defaultNoopMetrics() Meters { return &noopMeters{} }

func (n *noopMeters) counter(string) CountMeter                           { return n }
func (n *noopMeters) counterVec(string, []string) CountVecMeter           { return n }
func (n *noopMeters) gauge(string) GaugeMeter                             { return n }
func (n *noopMeters) gaugeVec(string, []string) GaugeVecMeter             { return n }
func (n *noopMeters) histogram(string, []float64) HistogramMeter          { return n }
func (n *noopMeters) histogramVec(string, []string, []float64) HistogramVecMeter { return n }

// httpHandler answers every request 404: there is nothing to scrape
// until InitializePrometheusMetrics switches the backend.
func (n *noopMeters) httpHandler() http.Handler { return http.NotFoundHandler() }

func (n *noopMeters) Add(int64)                             {}
func (n *noopMeters) AddWithLabel(int64, map[string]string) {}
func (n *noopMeters) Observe(int64)                          {}
func (n *noopMeters) ObserveWithLabels(int64, map[string]string) {}
