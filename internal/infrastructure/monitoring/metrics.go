package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)
)

var (
	SaleAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sale_attempts_total",
			Help: "Total number of sale finalization attempts",
		},
	)

	SaleSuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sale_success_total",
			Help: "Total number of committed sales",
		},
	)

	SaleFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sale_failure_total",
			Help: "Total number of failed sales by failure class",
		},
		[]string{"reason"},
	)

	SaleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sale_duration_seconds",
			Help:    "Duration of sale transactions in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	SaleItemsSoldTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sale_items_sold_total",
			Help: "Total units sold across committed sales",
		},
	)

	StockGuardRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_guard_rejections_total",
			Help: "Conditional stock decrements that affected no row",
		},
	)

	RollbackFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sale_rollback_failures_total",
			Help: "Rollbacks of started sale transactions that failed",
		},
	)
)

var (
	SchemaProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_probes_total",
			Help: "Catalog probes by table and result",
		},
		[]string{"table", "result"},
	)

	SchemaCacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_cache_invalidations_total",
			Help: "Explicit invalidations of the cached order schema",
		},
		[]string{"reason"},
	)
)

var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	DBConnectionsWaitCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_wait_count",
			Help: "Total number of connections waited for",
		},
	)
)

var (
	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Duration of Redis commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"command"},
	)

	ProductCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_cache_requests_total",
			Help: "Product listing cache lookups by result",
		},
		[]string{"result"},
	)
)

// TimeHTTPRequest starts the clock; the route is only known after chi has matched it.
func TimeHTTPRequest(method string) func(route, statusCode string) {
	start := time.Now()
	return func(route, statusCode string) {
		duration := time.Since(start).Seconds()
		HTTPRequestDuration.WithLabelValues(route, method, statusCode).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(route, method, statusCode).Inc()
	}
}

func TimeDBQuery(queryType, table string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		DBQueryDuration.WithLabelValues(queryType, table).Observe(duration)
	}
}

func TimeRedisCommand(command string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		RedisCommandDuration.WithLabelValues(command).Observe(duration)
	}
}

func RecordStockGuardRejection() {
	StockGuardRejectionsTotal.Inc()
}

func RecordRollbackFailure() {
	RollbackFailuresTotal.Inc()
}

func RecordSchemaProbe(table string, fallback bool) {
	result := "ok"
	if fallback {
		result = "fallback"
	}
	SchemaProbesTotal.WithLabelValues(table, result).Inc()
}

func RecordSchemaInvalidation(reason string) {
	SchemaCacheInvalidationsTotal.WithLabelValues(reason).Inc()
}

func RecordProductCache(hit bool) {
	if hit {
		ProductCacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	ProductCacheRequestsTotal.WithLabelValues("miss").Inc()
}
