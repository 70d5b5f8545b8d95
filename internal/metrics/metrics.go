// Package metrics keeps Prometheus counters and histograms for the events
// published on the event bus and serves them over HTTP.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/feedgraph/internal/eventbus"
	events "github.com/hanpama/feedgraph/internal/events"
)

// Collector owns a private registry so several collectors can coexist in
// one process.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	CatalogCalls     *prometheus.CounterVec
	CatalogLatency   *prometheus.HistogramVec
	BreakerOpen      prometheus.Gauge
	MessagesPosted   prometheus.Counter
	MessagesDeleted  prometheus.Counter
}

// NewCollector creates a collector whose metric names are prefixed with
// namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests to the GraphQL endpoint",
		}, []string{"method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_operations_total",
			Help:      "Total number of GraphQL operations by outcome",
		}, []string{"type", "outcome"}),
		OperationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graphql_operation_duration_seconds",
			Help:      "GraphQL operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		CatalogCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_calls_total",
			Help:      "Total number of calls to the remote movie catalog",
		}, []string{"operation", "status"}),
		CatalogLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_call_duration_seconds",
			Help:      "Remote movie catalog call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_breaker_open",
			Help:      "1 while the catalog circuit breaker is open",
		}),
		MessagesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_posted_total",
			Help:      "Total number of messages posted",
		}),
		MessagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_deleted_total",
			Help:      "Total number of messages deleted",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.Operations,
		c.OperationLatency,
		c.CatalogCalls,
		c.CatalogLatency,
		c.BreakerOpen,
		c.MessagesPosted,
		c.MessagesDeleted,
	)
	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Subscribe attaches the collector to the global bus. The returned function
// detaches it.
func (c *Collector) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			c.HTTPRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			c.HTTPDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			c.Operations.WithLabelValues(e.OperationType, outcome(e)).Inc()
			c.OperationLatency.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.CatalogCallFinish) {
			status := strconv.Itoa(e.Status)
			if e.Err != nil && e.Status == 0 {
				status = "error"
			}
			c.CatalogCalls.WithLabelValues(e.Operation, status).Inc()
			c.CatalogLatency.WithLabelValues(e.Operation).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.CatalogBreakerStateChange) {
			if e.To == "open" {
				c.BreakerOpen.Set(1)
			} else {
				c.BreakerOpen.Set(0)
			}
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.MessagePosted) { c.MessagesPosted.Inc() }),
		eventbus.Subscribe(func(ctx context.Context, e events.MessageDeleted) { c.MessagesDeleted.Inc() }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func outcome(e events.GraphQLFinish) string {
	switch {
	case e.Validation:
		return "rejected"
	case len(e.Errors) > 0:
		return "partial"
	default:
		return "ok"
	}
}
