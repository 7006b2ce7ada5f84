package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memochat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat API.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memochat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memochat_transactions_processed_total",
			Help: "Observed ledger transactions by processing outcome.",
		},
		[]string{"outcome"},
	)
	storeRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "memochat_store_retries_total",
			Help: "Storage retries performed while ingesting transactions.",
		},
	)
	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memochat_broadcasts_total",
			Help: "Outbound chat transactions by kind and result.",
		},
		[]string{"kind", "result"},
	)
	reconciliationPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memochat_reconciliation_pending",
			Help: "Broadcast records whose local store failed and await reconciliation.",
		},
	)
	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memochat_events_published_total",
			Help: "Domain events published on the in-process bus.",
		},
		[]string{"type"},
	)
	eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "memochat_events_dropped_total",
			Help: "Domain events dropped because a subscriber fell behind.",
		},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memochat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memochat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "memochat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		transactionsTotal,
		storeRetriesTotal,
		broadcastsTotal,
		reconciliationPending,
		eventsPublishedTotal,
		eventsDroppedTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

// Handler serves the prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncTransaction(outcome string) {
	transactionsTotal.WithLabelValues(outcome).Inc()
}

func IncStoreRetry() {
	storeRetriesTotal.Inc()
}

func IncBroadcast(kind, result string) {
	broadcastsTotal.WithLabelValues(kind, result).Inc()
}

func SetReconciliationPending(n int) {
	reconciliationPending.Set(float64(n))
}

func IncEventPublished(eventType string) {
	eventsPublishedTotal.WithLabelValues(eventType).Inc()
}

func IncEventDropped() {
	eventsDroppedTotal.Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
