package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordShiprocketCall("orders/show", "200", 0.01)
	m.RecordShiprocketCall("orders/show", "200", 0.02)
	m.RecordReconcileOrder("updated")

	require.Equal(t, 2.0, testutil.ToFloat64(m.ShiprocketRequests.WithLabelValues("orders/show", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ReconcileOrders.WithLabelValues("updated")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordShiprocketCall("x", "200", 1)
	m.RecordTokenRefresh("ok")
	m.RecordReconcileOrder("failed")
	m.RecordReconcileBatch("ok")
	m.RecordHTTPRequest("/", "200")
}
