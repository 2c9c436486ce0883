// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Form operation metrics
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	VerificationsTotal *prometheus.CounterVec

	// Dashboard metrics
	DashboardRefreshes    *prometheus.CounterVec
	RefreshSkipped        prometheus.Counter
	TokensOnDashboard     prometheus.Gauge
	LastSuccessfulRefresh prometheus.Gauge

	// Wallet metrics
	WalletConnected prometheus.Gauge

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec
	ConfirmLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return newMetrics(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics registered on reg instead of the
// default registry. Used by tests that need isolated collectors.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	return newMetrics(namespace, reg)
}

func newMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_token_app"
	}
	f := promauto.With(reg)

	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokenops",
			Name:      "operations_total",
			Help:      "Total number of submitted token operations by kind and outcome",
		}, []string{"kind", "status"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tokenops",
			Name:      "operation_duration_seconds",
			Help:      "Time from submit to confirmation or failure",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}, []string{"kind"}),
		VerificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokenops",
			Name:      "verifications_total",
			Help:      "Total number of mint/send verifications by outcome",
		}, []string{"form", "result"}),

		DashboardRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "refreshes_total",
			Help:      "Total number of dashboard refreshes by outcome",
		}, []string{"status"}),
		RefreshSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "refresh_skipped_total",
			Help:      "Ticks skipped because a previous refresh was still running",
		}),
		TokensOnDashboard: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "tokens",
			Help:      "Number of token accounts in the latest dashboard snapshot",
		}),
		LastSuccessfulRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful dashboard refresh",
		}),

		WalletConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "connected",
			Help:      "1 if a wallet session is connected",
		}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),
		ConfirmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "confirmation_latency_seconds",
			Help:      "Time to reach the requested commitment",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"method"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation records a submitted operation outcome and its duration.
func RecordOperation(kind, status string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordVerification records a verification result ("ok" or an error kind).
func RecordVerification(form, result string) {
	DefaultMetrics.VerificationsTotal.WithLabelValues(form, result).Inc()
}

// RecordRefresh records a dashboard refresh.
func RecordRefresh(err error, tokens int, unixTime int64) {
	if err != nil {
		DefaultMetrics.DashboardRefreshes.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.DashboardRefreshes.WithLabelValues("ok").Inc()
	DefaultMetrics.TokensOnDashboard.Set(float64(tokens))
	DefaultMetrics.LastSuccessfulRefresh.Set(float64(unixTime))
}

// RecordRefreshSkipped counts a tick dropped by the overlap guard.
func RecordRefreshSkipped() {
	DefaultMetrics.RefreshSkipped.Inc()
}

// SetWalletConnected updates the wallet connection gauge.
func SetWalletConnected(connected bool) {
	if connected {
		DefaultMetrics.WalletConnected.Set(1)
		return
	}
	DefaultMetrics.WalletConnected.Set(0)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordConfirmLatency records how long confirmation took per method (ws or poll).
func RecordConfirmLatency(method string, seconds float64) {
	DefaultMetrics.ConfirmLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest counts an API request.
func RecordHTTPRequest(route string, code int) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
