package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value reads the current value of a single counter or gauge.
func value(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	m, ok := <-ch
	require.True(t, ok, "collector produced no metric")
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry("test", reg)

	m.OperationsTotal.WithLabelValues("mint", "confirmed").Inc()
	m.HTTPRequests.WithLabelValues("/api/mint", "200").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_tokenops_operations_total"])
	assert.True(t, names["test_http_requests_total"])
}

func TestRecordRefresh(t *testing.T) {
	okBefore := value(t, DefaultMetrics.DashboardRefreshes.WithLabelValues("ok"))
	errBefore := value(t, DefaultMetrics.DashboardRefreshes.WithLabelValues("error"))

	RecordRefresh(nil, 3, 1700000000)
	assert.Equal(t, okBefore+1, value(t, DefaultMetrics.DashboardRefreshes.WithLabelValues("ok")))
	assert.Equal(t, float64(3), value(t, DefaultMetrics.TokensOnDashboard))
	assert.Equal(t, float64(1700000000), value(t, DefaultMetrics.LastSuccessfulRefresh))

	// A failed refresh leaves the last snapshot gauges alone.
	RecordRefresh(errors.New("rpc down"), 0, 1800000000)
	assert.Equal(t, errBefore+1, value(t, DefaultMetrics.DashboardRefreshes.WithLabelValues("error")))
	assert.Equal(t, float64(3), value(t, DefaultMetrics.TokensOnDashboard))
	assert.Equal(t, float64(1700000000), value(t, DefaultMetrics.LastSuccessfulRefresh))
}

func TestSetWalletConnected(t *testing.T) {
	SetWalletConnected(true)
	assert.Equal(t, float64(1), value(t, DefaultMetrics.WalletConnected))
	SetWalletConnected(false)
	assert.Equal(t, float64(0), value(t, DefaultMetrics.WalletConnected))
}

func TestRecordRPCLatency_CountsErrors(t *testing.T) {
	before := value(t, DefaultMetrics.RPCCallErrors.WithLabelValues("getBalance"))

	RecordRPCLatency("getBalance", 0.01, nil)
	RecordRPCLatency("getBalance", 0.02, errors.New("timeout"))

	assert.Equal(t, before+1, value(t, DefaultMetrics.RPCCallErrors.WithLabelValues("getBalance")))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := value(t, DefaultMetrics.HTTPRequests.WithLabelValues("/health", "200"))
	RecordHTTPRequest("/health", 200)
	assert.Equal(t, before+1, value(t, DefaultMetrics.HTTPRequests.WithLabelValues("/health", "200")))
}
