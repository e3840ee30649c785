package shipping_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/ShipBridge/internal/integrations/shiprocket"
	"github.com/BearBump/ShipBridge/internal/services/reconciler"
	"github.com/BearBump/ShipBridge/internal/services/shipping"
	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	merchant int64

	credRes  shipping.Result
	create   shipping.CreateShipmentResult
	couriers shipping.CouriersResult
	awb      shipping.AWBResult
	doc      shipping.DocumentResult
	pickup   shipping.PickupResult
	err      error
}

func (f *fakeService) SaveCredential(ctx context.Context, merchantID int64, in shipping.CredentialInput) (shipping.Result, error) {
	f.merchant = merchantID
	return f.credRes, f.err
}

func (f *fakeService) CreateShipment(ctx context.Context, merchantID int64, in shipping.CreateShipmentInput) (shipping.CreateShipmentResult, error) {
	f.merchant = merchantID
	return f.create, f.err
}

func (f *fakeService) Couriers(ctx context.Context, merchantID, orderID int64) (shipping.CouriersResult, error) {
	f.merchant = merchantID
	return f.couriers, f.err
}

func (f *fakeService) AssignAWB(ctx context.Context, merchantID int64, in shipping.AssignAWBInput) (shipping.AWBResult, error) {
	f.merchant = merchantID
	return f.awb, f.err
}

func (f *fakeService) Label(ctx context.Context, merchantID, orderID int64) (shipping.DocumentResult, error) {
	f.merchant = merchantID
	return f.doc, f.err
}

func (f *fakeService) Manifest(ctx context.Context, merchantID, orderID int64) (shipping.DocumentResult, error) {
	f.merchant = merchantID
	return f.doc, f.err
}

func (f *fakeService) RequestPickup(ctx context.Context, merchantID, orderID int64) (shipping.PickupResult, error) {
	f.merchant = merchantID
	return f.pickup, f.err
}

type fakeReconciler struct {
	res reconciler.BatchResult
	err error
}

func (f fakeReconciler) ReconcileBatch(ctx context.Context) (reconciler.BatchResult, error) {
	return f.res, f.err
}

func newServer(t *testing.T, svc *fakeService, rec StatusReconciler) (*httptest.Server, *telemetry.Metrics) {
	t.Helper()
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	r := chi.NewRouter()
	New(svc, rec, m, nil).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, m
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, merchant string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if merchant != "" {
		req.Header.Set(MerchantHeader, merchant)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestMissingMerchantIsUnauthorized(t *testing.T) {
	srv, _ := newServer(t, &fakeService{}, fakeReconciler{})

	resp, body := do(t, srv, http.MethodPost, "/shiprocket/couriers", `{"order_id":1}`, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, false, body["success"])

	resp, _ = do(t, srv, http.MethodPost, "/shiprocket/couriers", `{"order_id":1}`, "abc")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateShipment_OK(t *testing.T) {
	svc := &fakeService{create: shipping.CreateShipmentResult{
		Result:             shipping.Result{Outcome: shipping.OutcomeOK, Message: "Order created in Shiprocket successfully"},
		ExternalOrderID:    1001,
		ExternalShipmentID: 2002,
	}}
	srv, m := newServer(t, svc, fakeReconciler{})

	resp, body := do(t, srv, http.MethodPost, "/shiprocket/orders", `{"order_id":1,"pickup_address_id":2,"box_size_id":3}`, "7")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, float64(1001), body["shiprocket_order_id"])
	require.Equal(t, int64(7), svc.merchant)
	require.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/shiprocket/orders", "200")))
}

func TestBusinessRejectionIs200(t *testing.T) {
	svc := &fakeService{couriers: shipping.CouriersResult{
		Result: shipping.Result{Outcome: shipping.OutcomeRejected, Message: "No couriers available for this route."},
	}}
	srv, _ := newServer(t, svc, fakeReconciler{})

	resp, body := do(t, srv, http.MethodPost, "/shiprocket/couriers", `{"order_id":1}`, "7")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["success"])
	require.Equal(t, "No couriers available for this route.", body["message"])
	require.NotContains(t, body, "couriers")
}

func TestValidationErrors(t *testing.T) {
	svc := &fakeService{err: &shipping.ValidationError{Field: "box_size_id", Message: "failed on the 'required' rule"}}
	srv, _ := newServer(t, svc, fakeReconciler{})

	resp, body := do(t, srv, http.MethodPost, "/shiprocket/orders", `{"order_id":1}`, "7")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "box_size_id", body["field"])

	svc.err = &shipping.ValidationError{Field: "order_id", Message: "order not found", NotFound: true}
	resp, _ = do(t, srv, http.MethodPost, "/shiprocket/pickup", `{"order_id":1}`, "7")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/shiprocket/pickup", `not json`, "7")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFaultIs500(t *testing.T) {
	svc := &fakeService{err: errors.Wrap(&shiprocket.Error{Kind: shiprocket.KindCredentialsMissing}, "assign awb")}
	srv, _ := newServer(t, svc, fakeReconciler{})

	resp, body := do(t, srv, http.MethodPost, "/shiprocket/awb", `{"order_id":1,"courier_id":2}`, "7")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Shiprocket credentials are not configured", body["message"])
}

func TestLabelRedirectsAndNotReady(t *testing.T) {
	svc := &fakeService{doc: shipping.DocumentResult{
		Result: shipping.Result{Outcome: shipping.OutcomeOK},
		URL:    "https://cdn.example/label.pdf",
	}}
	srv, _ := newServer(t, svc, fakeReconciler{})

	resp, _ := do(t, srv, http.MethodGet, "/shiprocket/orders/42/label", "", "7")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "https://cdn.example/label.pdf", resp.Header.Get("Location"))

	svc.doc = shipping.DocumentResult{Result: shipping.Result{Outcome: shipping.OutcomeRejected, Message: "Manifest not available yet."}}
	resp, body := do(t, srv, http.MethodGet, "/shiprocket/orders/42/manifest", "", "7")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Manifest not available yet.", body["message"])

	resp, _ = do(t, srv, http.MethodGet, "/shiprocket/orders/x/label", "", "7")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPickupIncludesSchedule(t *testing.T) {
	at := time.Date(2024, 3, 2, 10, 0, 0, 0, shiprocket.IST)
	svc := &fakeService{pickup: shipping.PickupResult{
		Result:   shipping.Result{Outcome: shipping.OutcomeOK, Message: "Pickup requested successfully"},
		PickupAt: &at,
	}}
	srv, _ := newServer(t, svc, fakeReconciler{})

	resp, body := do(t, srv, http.MethodPost, "/shiprocket/pickup", `{"order_id":1}`, "7")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "2024-03-02T10:00:00+05:30", body["pickup_scheduled_at"])
}

func TestDeliveryStatus(t *testing.T) {
	srv, _ := newServer(t, &fakeService{}, fakeReconciler{res: reconciler.BatchResult{Total: 3, Updated: 2, Failed: 1}})

	resp, body := do(t, srv, http.MethodPost, "/shiprocket/delivery-status", "", "7")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	summary := body["summary"].(map[string]any)
	require.Equal(t, float64(1), summary["failed"])

	srv, _ = newServer(t, &fakeService{}, fakeReconciler{err: errors.New("db down")})
	resp, _ = do(t, srv, http.MethodPost, "/shiprocket/delivery-status", "", "7")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
