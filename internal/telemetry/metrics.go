package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by both binaries.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ShiprocketRequests *prometheus.CounterVec
	ShiprocketDuration *prometheus.HistogramVec
	TokenRefreshes     *prometheus.CounterVec
	ReconcileOrders    *prometheus.CounterVec
	ReconcileBatches   *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ShiprocketRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_shiprocket_requests_total",
				Help: "Outbound Shiprocket API calls by endpoint and HTTP status",
			},
			[]string{"endpoint", "code"},
		),
		ShiprocketDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipbridge_shiprocket_request_duration_seconds",
				Help:    "Outbound Shiprocket API call duration by endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		TokenRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_token_refreshes_total",
				Help: "Shiprocket login calls by result",
			},
			[]string{"result"},
		),
		ReconcileOrders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_reconcile_orders_total",
				Help: "Orders visited by the status reconciler by result",
			},
			[]string{"result"},
		),
		ReconcileBatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_reconcile_batches_total",
				Help: "Reconcile batches by result",
			},
			[]string{"result"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_http_requests_total",
				Help: "Inbound API requests by route and status",
			},
			[]string{"route", "code"},
		),
	}
}

func (m *Metrics) RecordShiprocketCall(endpoint, code string, seconds float64) {
	if m == nil {
		return
	}
	m.ShiprocketRequests.WithLabelValues(endpoint, code).Inc()
	m.ShiprocketDuration.WithLabelValues(endpoint).Observe(seconds)
}

func (m *Metrics) RecordTokenRefresh(result string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordReconcileOrder(result string) {
	if m == nil {
		return
	}
	m.ReconcileOrders.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordReconcileBatch(result string) {
	if m == nil {
		return
	}
	m.ReconcileBatches.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordHTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
