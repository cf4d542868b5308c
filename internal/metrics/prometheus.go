package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all the Prometheus metrics for our service
type Metrics struct {
	// Request counters
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Ledger metrics
	LedgerOperations        *prometheus.CounterVec
	LedgerOperationDuration *prometheus.HistogramVec
	CustodianCalls          *prometheus.CounterVec
	AssetMoved              *prometheus.CounterVec
	PoolBalance             *prometheus.GaugeVec

	// Storage and cache metrics
	DatabaseQueries *prometheus.CounterVec
	DatabaseErrors  *prometheus.CounterVec
	CacheRequests   *prometheus.CounterVec

	// Health check metrics
	HealthCheckStatus *prometheus.GaugeVec
}

// NewPrometheusMetrics creates all metrics and registers them on reg
func NewPrometheusMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	metrics := &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipescrow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clipescrow_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clipescrow_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
			[]string{"method", "endpoint"},
		),

		LedgerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipescrow_ledger_operations_total",
				Help: "Ledger operations by outcome",
			},
			[]string{"operation", "result"},
		),

		LedgerOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clipescrow_ledger_operation_duration_seconds",
				Help:    "Ledger operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		CustodianCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipescrow_custodian_calls_total",
				Help: "Custodian credit/debit calls by outcome",
			},
			[]string{"direction", "result"},
		),

		AssetMoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipescrow_asset_moved_total",
				Help: "Base units moved through the custodian",
			},
			[]string{"direction", "asset"},
		),

		PoolBalance: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clipescrow_pool_balance",
				Help: "Escrowed base units per campaign after its last operation",
			},
			[]string{"campaign_id"},
		),

		DatabaseQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipescrow_database_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"operation", "table"},
		),

		DatabaseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipescrow_database_errors_total",
				Help: "Total number of database errors",
			},
			[]string{"operation", "error_type"},
		),

		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipescrow_cache_requests_total",
				Help: "Stats cache lookups by result",
			},
			[]string{"result"},
		),

		HealthCheckStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clipescrow_health_check_status",
				Help: "Health check status (1 = healthy, 0 = unhealthy)",
			},
			[]string{"check_type"},
		),
	}

	return metrics
}

// RecordHTTPRequest records an HTTP request with its duration and status
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordLedgerOperation records one ledger call and its outcome kind
func (m *Metrics) RecordLedgerOperation(operation, result string, duration float64) {
	m.LedgerOperations.WithLabelValues(operation, result).Inc()
	m.LedgerOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCustodianCall records a custodian transfer attempt
func (m *Metrics) RecordCustodianCall(direction, result string) {
	m.CustodianCalls.WithLabelValues(direction, result).Inc()
}

// RecordAssetMoved adds to the moved-units counter
func (m *Metrics) RecordAssetMoved(direction, asset string, amount float64) {
	m.AssetMoved.WithLabelValues(direction, asset).Add(amount)
}

// SetPoolBalance publishes a campaign's pool balance
func (m *Metrics) SetPoolBalance(campaignID string, balance float64) {
	m.PoolBalance.WithLabelValues(campaignID).Set(balance)
}

// RecordDatabaseQuery records a database query
func (m *Metrics) RecordDatabaseQuery(operation, table string) {
	m.DatabaseQueries.WithLabelValues(operation, table).Inc()
}

// RecordDatabaseError records a database error
func (m *Metrics) RecordDatabaseError(operation, errorType string) {
	m.DatabaseErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordCacheRequest records a cache hit or miss
func (m *Metrics) RecordCacheRequest(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}

// SetHealthCheckStatus sets the health check status
func (m *Metrics) SetHealthCheckStatus(checkType string, healthy bool) {
	status := 0.0
	if healthy {
		status = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(checkType).Set(status)
}

// IncRequestsInFlight increments the in-flight requests counter
func (m *Metrics) IncRequestsInFlight(method, endpoint string) {
	m.HTTPRequestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// DecRequestsInFlight decrements the in-flight requests counter
func (m *Metrics) DecRequestsInFlight(method, endpoint string) {
	m.HTTPRequestsInFlight.WithLabelValues(method, endpoint).Dec()
}
