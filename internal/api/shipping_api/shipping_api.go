package shipping_api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/BearBump/ShipBridge/internal/integrations/shiprocket"
	"github.com/BearBump/ShipBridge/internal/services/reconciler"
	"github.com/BearBump/ShipBridge/internal/services/shipping"
	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	MerchantHeader  = "X-Merchant-ID"
	RequestIDHeader = "X-Request-ID"
)

type ShippingService interface {
	SaveCredential(ctx context.Context, merchantID int64, in shipping.CredentialInput) (shipping.Result, error)
	CreateShipment(ctx context.Context, merchantID int64, in shipping.CreateShipmentInput) (shipping.CreateShipmentResult, error)
	Couriers(ctx context.Context, merchantID, orderID int64) (shipping.CouriersResult, error)
	AssignAWB(ctx context.Context, merchantID int64, in shipping.AssignAWBInput) (shipping.AWBResult, error)
	Label(ctx context.Context, merchantID, orderID int64) (shipping.DocumentResult, error)
	Manifest(ctx context.Context, merchantID, orderID int64) (shipping.DocumentResult, error)
	RequestPickup(ctx context.Context, merchantID, orderID int64) (shipping.PickupResult, error)
}

type StatusReconciler interface {
	ReconcileBatch(ctx context.Context) (reconciler.BatchResult, error)
}

type ShippingAPI struct {
	svc     ShippingService
	rec     StatusReconciler
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

func New(svc ShippingService, rec StatusReconciler, metrics *telemetry.Metrics, logger *zap.Logger) *ShippingAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShippingAPI{svc: svc, rec: rec, metrics: metrics, logger: logger}
}

// Routes mounts the /shiprocket endpoints on r.
func (a *ShippingAPI) Routes(r chi.Router) {
	r.Route("/shiprocket", func(r chi.Router) {
		r.Use(a.requestID, a.observe, requireMerchant)

		r.Put("/credentials", a.saveCredential)
		r.Post("/orders", a.createShipment)
		r.Post("/delivery-status", a.deliveryStatus)
		r.Post("/couriers", a.couriers)
		r.Post("/awb", a.assignAWB)
		r.Get("/orders/{orderID}/label", a.label)
		r.Get("/orders/{orderID}/manifest", a.manifest)
		r.Post("/pickup", a.pickup)
	})
}

type merchantKey struct{}

func merchantFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(merchantKey{}).(int64)
	return id
}

func requireMerchant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(MerchantHeader), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Unauthenticated."})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), merchantKey{}, id)))
	})
}

func (a *ShippingAPI) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// observe records one counter sample per request keyed by route pattern.
func (a *ShippingAPI) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.metrics.RecordHTTPRequest(route, strconv.Itoa(status))
	})
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Field   string `json:"field,omitempty"`
}

type orderRequest struct {
	OrderID int64 `json:"order_id"`
}

func (a *ShippingAPI) saveCredential(w http.ResponseWriter, r *http.Request) {
	var in shipping.CredentialInput
	if !decode(w, r, &in) {
		return
	}
	res, err := a.svc.SaveCredential(r.Context(), merchantFrom(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, res, nil)
}

func (a *ShippingAPI) createShipment(w http.ResponseWriter, r *http.Request) {
	var in shipping.CreateShipmentInput
	if !decode(w, r, &in) {
		return
	}
	res, err := a.svc.CreateShipment(r.Context(), merchantFrom(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, res.Result, map[string]any{
		"shiprocket_order_id":    res.ExternalOrderID,
		"shiprocket_shipment_id": res.ExternalShipmentID,
	})
}

func (a *ShippingAPI) deliveryStatus(w http.ResponseWriter, r *http.Request) {
	res, err := a.rec.ReconcileBatch(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Delivery status updated successfully",
		"summary": res,
	})
}

func (a *ShippingAPI) couriers(w http.ResponseWriter, r *http.Request) {
	var in orderRequest
	if !decode(w, r, &in) {
		return
	}
	res, err := a.svc.Couriers(r.Context(), merchantFrom(r.Context()), in.OrderID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var extra map[string]any
	if res.OK() {
		extra = map[string]any{"couriers": res.Couriers}
	}
	writeResult(w, res.Result, extra)
}

func (a *ShippingAPI) assignAWB(w http.ResponseWriter, r *http.Request) {
	var in shipping.AssignAWBInput
	if !decode(w, r, &in) {
		return
	}
	res, err := a.svc.AssignAWB(r.Context(), merchantFrom(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var extra map[string]any
	if res.OK() {
		extra = map[string]any{"awb_code": res.AWBCode}
	}
	writeResult(w, res.Result, extra)
}

func (a *ShippingAPI) label(w http.ResponseWriter, r *http.Request) {
	a.document(w, r, a.svc.Label)
}

func (a *ShippingAPI) manifest(w http.ResponseWriter, r *http.Request) {
	a.document(w, r, a.svc.Manifest)
}

// document redirects to the generated file or answers 404 while it is not
// ready.
func (a *ShippingAPI) document(w http.ResponseWriter, r *http.Request, fetch func(context.Context, int64, int64) (shipping.DocumentResult, error)) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, envelope{Message: "invalid order id", Field: "order_id"})
		return
	}
	res, err := fetch(r.Context(), merchantFrom(r.Context()), orderID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !res.OK() {
		writeJSON(w, http.StatusNotFound, envelope{Message: res.Message})
		return
	}
	http.Redirect(w, r, res.URL, http.StatusFound)
}

func (a *ShippingAPI) pickup(w http.ResponseWriter, r *http.Request) {
	var in orderRequest
	if !decode(w, r, &in) {
		return
	}
	res, err := a.svc.RequestPickup(r.Context(), merchantFrom(r.Context()), in.OrderID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var extra map[string]any
	if res.OK() && res.PickupAt != nil {
		extra = map[string]any{"pickup_scheduled_at": res.PickupAt}
	}
	writeResult(w, res.Result, extra)
}

// fail maps an operation error to a status. Validation problems are 4xx,
// everything else is an unexpected fault.
func (a *ShippingAPI) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *shipping.ValidationError
	if errors.As(err, &verr) {
		status := http.StatusUnprocessableEntity
		if verr.NotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, envelope{Message: verr.Error(), Field: verr.Field})
		return
	}

	a.logger.Error("shiprocket operation failed",
		zap.String("route", r.URL.Path),
		zap.Int64("merchant_id", merchantFrom(r.Context())),
		zap.String("request_id", w.Header().Get(RequestIDHeader)),
		zap.Error(err))

	msg := "Shiprocket request failed"
	switch {
	case errors.Is(err, shiprocket.ErrCredentialsMissing):
		msg = "Shiprocket credentials are not configured"
	case errors.Is(err, shiprocket.ErrAuthenticationFailed):
		msg = "Shiprocket authentication failed"
	case errors.Is(err, shiprocket.ErrTransport):
		msg = "Shiprocket is unreachable"
	}
	writeJSON(w, http.StatusInternalServerError, envelope{Message: msg, Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid request body"})
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, res shipping.Result, extra map[string]any) {
	body := map[string]any{"success": res.OK(), "message": res.Message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
