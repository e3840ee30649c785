package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://apiv2.shiprocket.in/v1/external/"

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *telemetry.Metrics
	Logger     *zap.Logger
}

type transport struct {
	baseURL string
	httpc   *http.Client
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

func newTransport(cfg Config) *transport {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transport{baseURL: base, httpc: httpc, metrics: cfg.Metrics, logger: logger}
}

// send performs one HTTP exchange. GET requests carry query, every other
// method carries body as JSON. Only network faults are returned as errors;
// any HTTP status is handed back to the caller.
func (t *transport) send(ctx context.Context, endpoint, method, path, token string, query url.Values, body any) (int, []byte, error) {
	u := t.baseURL + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil && method != http.MethodGet {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, errors.Wrap(err, "marshal request")
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := t.httpc.Do(req)
	if err != nil {
		t.metrics.RecordShiprocketCall(endpoint, "transport_error", time.Since(started).Seconds())
		t.logger.Warn("shiprocket request failed",
			zap.String("endpoint", endpoint), zap.Error(err))
		return 0, nil, &Error{Kind: KindTransport, Endpoint: endpoint, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.RecordShiprocketCall(endpoint, "transport_error", time.Since(started).Seconds())
		return 0, nil, &Error{Kind: KindTransport, Endpoint: endpoint, Cause: errors.Wrap(err, "read body")}
	}

	t.metrics.RecordShiprocketCall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(started).Seconds())
	t.logger.Debug("shiprocket request",
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)
	return resp.StatusCode, raw, nil
}

func decodeInto(endpoint string, status int, raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindUpstreamRequestFailed, Endpoint: endpoint, Status: status, Body: string(raw), Cause: errors.Wrap(err, "decode response")}
	}
	return nil
}
