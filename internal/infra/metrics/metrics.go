// Package metrics provides Prometheus metrics for the channel cursor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load results
const (
	LoadOK          = "ok"
	LoadUnavailable = "unavailable"
	LoadMalformed   = "malformed"
)

// Metrics holds Prometheus counters and gauges for the channel.
type Metrics struct {
	registry        *prometheus.Registry
	transitions     *prometheus.CounterVec
	loads           *prometheus.CounterVec
	samplesSkipped  prometheus.Counter
	requestsTotal   prometheus.Counter
	errorsTotal     prometheus.Counter
	activeIndex     prometheus.Gauge
	playlistLength  prometheus.Gauge
	subscriberCount prometheus.Gauge
}

// New creates and registers the channel metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tvchannel_cursor_transitions_total",
		Help: "Total number of active index changes by cause",
	}, []string{"cause"})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tvchannel_playlist_loads_total",
		Help: "Total number of playlist loads by result",
	}, []string{"result"})
	samplesSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tvchannel_samples_skipped_total",
		Help: "Total number of polling ticks skipped because the player was not ready",
	})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tvchannel_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tvchannel_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	activeIndex := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tvchannel_cursor_active_index",
		Help: "Active item index (-1 when the playlist is empty)",
	})
	playlistLength := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tvchannel_playlist_items",
		Help: "Number of items in the current playlist",
	})
	subscriberCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tvchannel_subscribers",
		Help: "Number of cursor change subscribers",
	})
	activeIndex.Set(-1)

	registry.MustRegister(
		transitions,
		loads,
		samplesSkipped,
		requestsTotal,
		errorsTotal,
		activeIndex,
		playlistLength,
		subscriberCount,
	)

	return &Metrics{
		registry:        registry,
		transitions:     transitions,
		loads:           loads,
		samplesSkipped:  samplesSkipped,
		requestsTotal:   requestsTotal,
		errorsTotal:     errorsTotal,
		activeIndex:     activeIndex,
		playlistLength:  playlistLength,
		subscriberCount: subscriberCount,
	}
}

// ObserveTransition records an active index change.
func (m *Metrics) ObserveTransition(cause string, index int) {
	m.transitions.WithLabelValues(cause).Inc()
	m.activeIndex.Set(float64(index))
}

// ObserveLoad records a playlist load result.
func (m *Metrics) ObserveLoad(result string) {
	m.loads.WithLabelValues(result).Inc()
}

// SetPlaylistLength sets the playlist length gauge.
func (m *Metrics) SetPlaylistLength(n int) {
	m.playlistLength.Set(float64(n))
}

// SetSubscribers sets the subscriber gauge.
func (m *Metrics) SetSubscribers(n int) {
	m.subscriberCount.Set(float64(n))
}

// IncSamplesSkipped increments the skipped sample counter.
func (m *Metrics) IncSamplesSkipped() {
	m.samplesSkipped.Inc()
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
