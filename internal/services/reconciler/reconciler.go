package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipBridge/internal/broker/messages"
	"github.com/BearBump/ShipBridge/internal/integrations/shiprocket"
	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Repository interface {
	ListReconcilableOrders(ctx context.Context) ([]*models.Order, error)
	ApplyShipmentUpdate(ctx context.Context, upd models.ShipmentUpdate) error
}

type Carrier interface {
	GetOrder(ctx context.Context, merchantID, externalOrderID int64) (*shiprocket.OrderDetails, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Per-order outcomes.
const (
	resultUpdated   = "updated"
	resultUnchanged = "unchanged"
	resultSkipped   = "skipped"
	resultFailed    = "failed"
)

type BatchResult struct {
	Total     int `json:"total"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type Reconciler struct {
	repo     Repository
	carrier  Carrier
	producer Producer
	rl       RateLimiter
	metrics  *telemetry.Metrics
	logger   *zap.Logger

	topic              string
	concurrency        int
	rateLimitPerMinute int64
	rateLimitPause     time.Duration
	now                func() time.Time
}

// New builds a reconciler. producer and rl may be nil.
func New(repo Repository, carrier Carrier, producer Producer, rl RateLimiter, topic string) *Reconciler {
	return &Reconciler{
		repo:           repo,
		carrier:        carrier,
		producer:       producer,
		rl:             rl,
		logger:         zap.NewNop(),
		topic:          topic,
		concurrency:    1,
		rateLimitPause: 500 * time.Millisecond,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (r *Reconciler) WithSettings(concurrency int, rlPerMin int64) *Reconciler {
	if concurrency > 0 {
		r.concurrency = concurrency
	}
	if rlPerMin > 0 {
		r.rateLimitPerMinute = rlPerMin
	}
	return r
}

func (r *Reconciler) WithLogger(l *zap.Logger) *Reconciler {
	if l != nil {
		r.logger = l
	}
	return r
}

func (r *Reconciler) WithMetrics(m *telemetry.Metrics) *Reconciler {
	r.metrics = m
	return r
}

func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// ReconcileBatch syncs every eligible order with Shiprocket. Failures of a
// single order are logged and counted; only a failed listing is returned.
func (r *Reconciler) ReconcileBatch(ctx context.Context) (BatchResult, error) {
	orders, err := r.repo.ListReconcilableOrders(ctx)
	if err != nil {
		r.metrics.RecordReconcileBatch("error")
		return BatchResult{}, errors.Wrap(err, "list reconcilable orders")
	}

	var updated, unchanged, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, o := range orders {
		g.Go(func() error {
			res, err := r.reconcileOne(gctx, o)
			if err != nil {
				res = resultFailed
				r.logger.Warn("reconcile order failed",
					zap.Int64("order_id", o.ID),
					zap.Int64("merchant_id", o.MerchantID),
					zap.Error(err))
			}
			switch res {
			case resultUpdated:
				updated.Add(1)
			case resultUnchanged:
				unchanged.Add(1)
			case resultSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			r.metrics.RecordReconcileOrder(res)
			// Per-order errors never cancel the group.
			return nil
		})
	}
	_ = g.Wait()

	out := BatchResult{
		Total:     len(orders),
		Updated:   int(updated.Load()),
		Unchanged: int(unchanged.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
	r.metrics.RecordReconcileBatch("ok")
	r.logger.Info("reconcile batch done",
		zap.Int("total", out.Total),
		zap.Int("updated", out.Updated),
		zap.Int("unchanged", out.Unchanged),
		zap.Int("skipped", out.Skipped),
		zap.Int("failed", out.Failed))
	return out, nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, o *models.Order) (string, error) {
	if o.Shipment.ExternalOrderID == nil {
		return resultSkipped, nil
	}
	r.throttle(ctx)

	details, err := r.carrier.GetOrder(ctx, o.MerchantID, *o.Shipment.ExternalOrderID)
	if err != nil {
		return "", errors.Wrapf(err, "fetch shiprocket order %d", *o.Shipment.ExternalOrderID)
	}
	if details == nil || details.Data == nil {
		return resultSkipped, nil
	}
	code64, ok := details.Data.StatusCode.Int64()
	if !ok || code64 == 0 {
		return resultSkipped, nil
	}
	code := int(code64)

	upd := Diff(o, code, details.Data.Status.String())
	if upd.Empty() {
		return resultUnchanged, nil
	}
	if err := r.repo.ApplyShipmentUpdate(ctx, upd); err != nil {
		return "", errors.Wrapf(err, "save order %d", o.ID)
	}

	if upd.DeliveryStatus != nil {
		r.publish(ctx, o, upd)
	}
	return resultUpdated, nil
}

// Diff computes the fields that change when an order reports the given
// Shiprocket status. An empty update means nothing to write.
func Diff(o *models.Order, code int, status string) models.ShipmentUpdate {
	upd := models.ShipmentUpdate{OrderID: o.ID}

	if phase, ok := PhaseFor(code); ok && o.DeliveryStatus != phase {
		upd.DeliveryStatus = &phase
	}
	if PaidOnDelivery(code) && o.PaymentStatus != models.PaymentPaid {
		paid := models.PaymentPaid
		upd.PaymentStatus = &paid
	}
	if o.Shipment.ExternalStatusCode != code {
		upd.ExternalStatusCode = &code
	}
	lower := strings.ToLower(status)
	if o.Shipment.ExternalStatus == nil || *o.Shipment.ExternalStatus != lower {
		upd.ExternalStatus = &lower
	}
	return upd
}

// throttle keeps outbound lookups under the per-minute budget shared by all
// workers. Going over only pauses.
func (r *Reconciler) throttle(ctx context.Context) {
	if r.rl == nil || r.rateLimitPerMinute <= 0 {
		return
	}
	key := fmt.Sprintf("rl:shiprocket:%s", r.now().Format("200601021504"))
	allowed, n, err := r.rl.Allow(ctx, key, r.rateLimitPerMinute, 70*time.Second)
	if err != nil {
		r.logger.Warn("rate limiter unavailable", zap.Error(err))
		return
	}
	if !allowed {
		r.logger.Warn("shiprocket rate limit exceeded", zap.Int64("count", n))
		select {
		case <-ctx.Done():
		case <-time.After(r.rateLimitPause):
		}
	}
}

func (r *Reconciler) publish(ctx context.Context, o *models.Order, upd models.ShipmentUpdate) {
	if r.producer == nil || r.topic == "" {
		return
	}
	msg := messages.ShipmentStatusChanged{
		OrderID:                o.ID,
		MerchantID:             o.MerchantID,
		ExternalOrderID:        *o.Shipment.ExternalOrderID,
		PreviousDeliveryStatus: o.DeliveryStatus,
		DeliveryStatus:         *upd.DeliveryStatus,
		ExternalStatusCode:     o.Shipment.ExternalStatusCode,
		PaymentStatus:          o.PaymentStatus,
		ChangedAt:              r.now(),
	}
	if upd.ExternalStatusCode != nil {
		msg.ExternalStatusCode = *upd.ExternalStatusCode
	}
	if upd.ExternalStatus != nil {
		msg.ExternalStatus = *upd.ExternalStatus
	} else if o.Shipment.ExternalStatus != nil {
		msg.ExternalStatus = *o.Shipment.ExternalStatus
	}
	if upd.PaymentStatus != nil {
		msg.PaymentStatus = *upd.PaymentStatus
	}

	b, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal status event", zap.Int64("order_id", o.ID), zap.Error(err))
		return
	}
	if err := r.producer.Publish(ctx, r.topic, []byte(strconv.FormatInt(o.ID, 10)), b); err != nil {
		r.logger.Warn("publish status event", zap.Int64("order_id", o.ID), zap.Error(err))
	}
}
