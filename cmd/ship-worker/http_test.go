package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/ShipBridge/config"
	"github.com/BearBump/ShipBridge/internal/services/reconciler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

type nopBatch struct{}

func (nopBatch) ReconcileBatch(ctx context.Context) (reconciler.BatchResult, error) {
	return reconciler.BatchResult{}, nil
}

func TestWorkerHTTPServer_Endpoints(t *testing.T) {
	sw := filepath.Join(t.TempDir(), "worker.swagger.json")
	require.NoError(t, writeFile(sw, `{"swagger":"2.0"}`))

	runner := reconciler.NewRunner(nopBatch{}, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: sw,
			onListen:    func(a string) { addrCh <- a },
			runner:      runner,
			cfg: &config.Config{
				ShipBridge: config.ShipBridgeConfig{WorkerConcurrency: 3},
				Shiprocket: config.ShiprocketConfig{CredentialKey: "secret"},
			},
			gatherer: prometheus.NewRegistry(),
		})
	}()
	base := "http://" + <-addrCh

	get := func(path string) (int, string) {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	code, body := get("/healthz")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"status":"ok"}`, body)

	code, body = get("/config")
	require.Equal(t, http.StatusOK, code)
	require.NotContains(t, body, "secret")
	var cfgOut map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &cfgOut))
	require.Equal(t, float64(3), cfgOut["concurrency"])
	require.Equal(t, true, cfgOut["credentialEncryption"])

	resp, err := http.Post(base+"/trigger", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.NotNil(t, runner.Stats().LastTriggerAt)

	code, body = get("/stats")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "startedAt")

	code, _ = get("/swagger.json")
	require.Equal(t, http.StatusOK, code)
	code, _ = get("/metrics")
	require.Equal(t, http.StatusOK, code)

	cancel()
	select {
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting worker http to stop")
	case <-errCh:
	}
}

func TestWorkerHTTPServer_MissingSwagger(t *testing.T) {
	err := runWorkerHTTPServer(context.Background(), workerHTTPOpts{httpAddr: "127.0.0.1:0", swaggerPath: "/nope.json"})
	require.Error(t, err)
}
