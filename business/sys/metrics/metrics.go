// Package metrics maintains the prometheus collectors for the node: request
// counters for the web middleware and gauges that read the chain status.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hlandauf/namecore/foundation/blockchain/peer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "namecore"

// ChainSource reports the status of the local chain.
type ChainSource interface {
	RetrieveStatus() peer.PeerStatus
}

// Metrics holds the collectors registered for one node.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	errors    prometheus.Counter
	panics    prometheus.Counter
	throttles prometheus.Counter
}

// New constructs the collectors on a private registry along with the go
// runtime and process collectors.
func New() *Metrics {
	m := Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests segmented by route and status code.",
		}, []string{"route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total requests that returned an error.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "panics_total",
			Help:      "Total handler panics recovered.",
		}),
		throttles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "throttles_total",
			Help:      "Total requests rejected by the rate limiter.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.errors,
		m.panics,
		m.throttles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &m
}

// WatchChain registers gauges that read the chain status on every scrape.
func (m *Metrics) WatchChain(src ChainSource) {
	gauge := func(name string, help string, f func(peer.PeerStatus) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return f(src.RetrieveStatus())
		})
	}

	m.registry.MustRegister(
		gauge("height", "Number of the latest block.", func(ps peer.PeerStatus) float64 {
			return float64(ps.LatestBlockNumber)
		}),
		gauge("names", "Number of names in the registry.", func(ps peer.PeerStatus) float64 {
			return float64(ps.Names)
		}),
		gauge("pending_commitments", "Number of unrevealed commitments.", func(ps peer.PeerStatus) float64 {
			return float64(ps.PendingCommitments)
		}),
		gauge("mempool_length", "Number of transactions waiting to be mined.", func(ps peer.PeerStatus) float64 {
			return float64(ps.MempoolLength)
		}),
	)
}

// Handler returns the scrape endpoint for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records a completed request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(d.Seconds())
}

// AddError increments the error counter.
func (m *Metrics) AddError() {
	m.errors.Inc()
}

// AddPanic increments the panic counter.
func (m *Metrics) AddPanic() {
	m.panics.Inc()
}

// AddThrottle increments the throttle counter.
func (m *Metrics) AddThrottle() {
	m.throttles.Inc()
}
