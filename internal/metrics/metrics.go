// Package metrics exposes the peer's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the p2p metric families on a private registry so multiple
// peers can run inside one process (and one test binary) without collisions.
type Collector struct {
	peerName string
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	searchesTotal      *prometheus.CounterVec
	searchResultsCount *prometheus.HistogramVec
	fileTransfersTotal *prometheus.CounterVec
	transferBytesTotal *prometheus.CounterVec
	knownPeersCount    *prometheus.GaugeVec
	healthyPeersCount  *prometheus.GaugeVec
	rateLimitHitsTotal *prometheus.CounterVec
}

// NewCollector builds and registers the peer's metric families.
func NewCollector(peerName string) *Collector {
	c := &Collector{
		peerName: peerName,
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p2p_requests_total",
			Help: "Total HTTP requests handled, by method, endpoint and peer",
		}, []string{"method", "endpoint", "peer"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "p2p_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		searchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p2p_searches_total",
			Help: "Total federated searches served by this peer",
		}, []string{"peer"}),

		searchResultsCount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "p2p_search_results_count",
			Help:    "Total matching files returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}, []string{"peer"}),

		fileTransfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p2p_file_transfers_total",
			Help: "Completed file transfers, by operation and peer",
		}, []string{"operation", "peer"}),

		transferBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p2p_transfer_bytes_total",
			Help: "Bytes moved by file transfers, by operation and peer",
		}, []string{"operation", "peer"}),

		knownPeersCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "p2p_known_peers_count",
			Help: "Peers currently in the neighbour table",
		}, []string{"peer"}),

		healthyPeersCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "p2p_healthy_peers_count",
			Help: "Peers currently passing health probes",
		}, []string{"peer"}),

		rateLimitHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p2p_rate_limit_hits_total",
			Help: "Requests rejected by rate limiting, by bucket type",
		}, []string{"peer", "type"}),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.searchesTotal,
		c.searchResultsCount,
		c.fileTransfersTotal,
		c.transferBytesTotal,
		c.knownPeersCount,
		c.healthyPeersCount,
		c.rateLimitHitsTotal,
	)
	return c
}

// RecordRequest counts one handled HTTP request and observes its latency.
func (c *Collector) RecordRequest(method, endpoint string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, endpoint, c.peerName).Inc()
	c.requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSearch counts one search and the total matches it returned across
// all result entries.
func (c *Collector) RecordSearch(matches int) {
	c.searchesTotal.WithLabelValues(c.peerName).Inc()
	c.searchResultsCount.WithLabelValues(c.peerName).Observe(float64(matches))
}

// RecordFileTransfer counts one completed transfer and its byte volume.
// operation is "download" or "upload".
func (c *Collector) RecordFileTransfer(operation string, bytes int64) {
	c.fileTransfersTotal.WithLabelValues(operation, c.peerName).Inc()
	c.transferBytesTotal.WithLabelValues(operation, c.peerName).Add(float64(bytes))
}

// UpdatePeerCounts publishes the neighbour table gauges.
func (c *Collector) UpdatePeerCounts(known, healthy int) {
	c.knownPeersCount.WithLabelValues(c.peerName).Set(float64(known))
	c.healthyPeersCount.WithLabelValues(c.peerName).Set(float64(healthy))
}

// RecordRateLimitHit counts one rejected request in the named bucket.
func (c *Collector) RecordRateLimitHit(bucket string) {
	c.rateLimitHitsTotal.WithLabelValues(c.peerName, bucket).Inc()
}

// Handler serves the registry in the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry, used by tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// GinMiddleware records request counts and latency for every route. Unmatched
// routes are collapsed into a single label to keep cardinality bounded.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		c.RecordRequest(ctx.Request.Method, endpoint, time.Since(start))
	}
}
