package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	shippingapi "github.com/BearBump/ShipBridge/internal/api/shipping_api"
	"github.com/BearBump/ShipBridge/internal/services/reconciler"
	"github.com/BearBump/ShipBridge/internal/services/shipping"
	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type emptyBatch struct{}

func (emptyBatch) ReconcileBatch(ctx context.Context) (reconciler.BatchResult, error) {
	return reconciler.BatchResult{}, nil
}

func writeSwagger(t *testing.T) string {
	t.Helper()
	sw := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))
	return sw
}

func TestRunShipAPI_ServesOpsAndRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	api := shippingapi.New(shipping.New(nil, nil, nil, nil, nil), emptyBatch{}, metrics, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runShipAPI(ctx, shipAPIOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: writeSwagger(t),
			gatherer:    reg,
			onListen:    func(a string) { addrCh <- a },
		}, api)
	}()
	base := "http://" + <-addrCh

	resp, err := http.Get(base + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"swagger"`)

	req, _ := http.NewRequest(http.MethodPost, base+"/shiprocket/delivery-status", nil)
	req.Header.Set(shippingapi.MerchantHeader, "1")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), "shipbridge_http_requests_total")

	cancel()
	select {
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting server to stop")
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestRunShipAPI_MissingSwagger(t *testing.T) {
	err := runShipAPI(context.Background(), shipAPIOpts{httpAddr: "127.0.0.1:0", swaggerPath: "/nope/swagger.json"}, nil)
	require.Error(t, err)

	err = runShipAPI(context.Background(), shipAPIOpts{httpAddr: "127.0.0.1:0"}, nil)
	require.Error(t, err)
}

func TestReadyz(t *testing.T) {
	opts := shipAPIOpts{
		swaggerPath: writeSwagger(t),
		ready:       func(context.Context) error { return errors.New("pg down") },
	}
	api := shippingapi.New(nil, emptyBatch{}, nil, nil)
	h := newRouter(opts, api)

	srv := httptest.NewServer(h)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
