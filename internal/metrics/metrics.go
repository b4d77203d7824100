package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts API requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records API request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PartnerRequests counts outbound partner calls by channel, operation and outcome
	PartnerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "partner_requests_total", Help: "Outbound partner API calls."},
		[]string{"channel", "op", "outcome"},
	)
	// PartnerLatency tracks partner call latency in seconds
	PartnerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "partner_request_duration_seconds", Help: "Partner API call duration in seconds.", Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30}},
		[]string{"channel", "op"},
	)
	// SyncItems counts pushed grid cells by outcome
	SyncItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sync_items_total", Help: "Inventory, rate, availability and restriction items pushed to partners."},
		[]string{"channel", "kind", "outcome"},
	)
	// SyncRuns counts completed sync operations by log status
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sync_runs_total", Help: "Sync operations by status (success, partial, failed)."},
		[]string{"channel", "kind", "status"},
	)
	// BookingsFetched counts normalized and rejected partner bookings
	BookingsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bookings_fetched_total", Help: "Partner bookings by normalization outcome."},
		[]string{"channel", "outcome"},
	)
	// BreakerState exposes each channel endpoint's circuit breaker: 0 closed, 1 half-open, 2 open
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "partner_circuit_state", Help: "Circuit breaker state per channel endpoint (0 closed, 1 half-open, 2 open)."},
		[]string{"channel", "endpoint"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PartnerRequests)
		Registry.MustRegister(PartnerLatency)
		Registry.MustRegister(SyncItems)
		Registry.MustRegister(SyncRuns)
		Registry.MustRegister(BookingsFetched)
		Registry.MustRegister(BreakerState)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
