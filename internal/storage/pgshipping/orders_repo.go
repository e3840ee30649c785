package pgshipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const orderColumns = `
  o.id, o.merchant_id, o.user_id,
  o.shipping_address, o.billing_address,
  o.payment_status, o.delivery_status, o.grand_total::text,
  o.shipping_method, o.pickup_address_id,
  o.shiprocket_order_id, o.shiprocket_shipment_id,
  o.shiprocket_status_code, o.shiprocket_status,
  o.shiprocket_awb, o.shiprocket_courier_id, o.shiprocket_courier_name, o.awb_assigned_at,
  o.shiprocket_label_url, o.shiprocket_manifest_url,
  o.pickup_scheduled_at, o.pickup_token,
  o.updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var userID *int64
	var shippingAddr, billingAddr *string
	var grandTotal string
	var shippingMethod *string
	if err := row.Scan(
		&o.ID, &o.MerchantID, &userID,
		&shippingAddr, &billingAddr,
		&o.PaymentStatus, &o.DeliveryStatus, &grandTotal,
		&shippingMethod, &o.Shipment.PickupAddressID,
		&o.Shipment.ExternalOrderID, &o.Shipment.ExternalShipmentID,
		&o.Shipment.ExternalStatusCode, &o.Shipment.ExternalStatus,
		&o.Shipment.AWBCode, &o.Shipment.CourierID, &o.Shipment.CourierName, &o.Shipment.AWBAssignedAt,
		&o.Shipment.LabelURL, &o.Shipment.ManifestURL,
		&o.Shipment.PickupScheduledAt, &o.Shipment.PickupToken,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if userID != nil {
		o.UserID = *userID
	}
	if shippingAddr != nil {
		o.ShippingAddress = []byte(*shippingAddr)
	}
	if billingAddr != nil {
		o.BillingAddress = []byte(*billingAddr)
	}
	if shippingMethod != nil {
		o.Shipment.ShippingMethod = *shippingMethod
	}
	total, err := decimal.NewFromString(grandTotal)
	if err != nil {
		return nil, errors.Wrap(err, "parse grand_total")
	}
	o.GrandTotal = total
	return &o, nil
}

// GetOrder loads an order with its owner and lines (each line carrying its
// product and the SKU of the product's first stock record).
func (s *Storage) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}

	if o.UserID != 0 {
		var u models.User
		var email, phone *string
		err := s.db.QueryRow(ctx, `SELECT id, name, email, phone FROM users WHERE id = $1`, o.UserID).
			Scan(&u.ID, &u.Name, &email, &phone)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return nil, errors.Wrap(err, "select order owner")
		default:
			u.Email = deref(email)
			u.Phone = deref(phone)
			o.Owner = &u
		}
	}

	rows, err := s.db.Query(ctx, `
SELECT
  d.product_id, d.quantity, d.price::text,
  p.id, p.name, p.weight::text, p.hsn_code,
  (SELECT ps.sku FROM product_stocks ps WHERE ps.product_id = p.id ORDER BY ps.id LIMIT 1)
FROM order_details d
LEFT JOIN products p ON p.id = d.product_id
WHERE d.order_id = $1
ORDER BY d.id
`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "select order lines")
	}
	defer rows.Close()

	for rows.Next() {
		var l models.OrderLine
		var productID, pID *int64
		var price string
		var name, weight, hsn, sku *string
		if err := rows.Scan(&productID, &l.Quantity, &price, &pID, &name, &weight, &hsn, &sku); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		if productID != nil {
			l.ProductID = *productID
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return nil, errors.Wrap(err, "parse line price")
		}
		if pID != nil {
			p := &models.Product{ID: *pID, Name: deref(name), HSNCode: deref(hsn), SKU: deref(sku)}
			if weight != nil {
				w, err := decimal.NewFromString(*weight)
				if err != nil {
					return nil, errors.Wrap(err, "parse product weight")
				}
				p.Weight = decimal.NewNullDecimal(w)
			}
			l.Product = p
		}
		o.Lines = append(o.Lines, l)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return o, nil
}

func (s *Storage) GetPickupAddress(ctx context.Context, id int64) (*models.PickupAddress, error) {
	var a models.PickupAddress
	err := s.db.QueryRow(ctx, `SELECT id, merchant_id, address_nickname FROM pickup_addresses WHERE id = $1`, id).
		Scan(&a.ID, &a.MerchantID, &a.Nickname)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select pickup address")
	}
	return &a, nil
}

func (s *Storage) GetBoxSize(ctx context.Context, id int64) (*models.BoxSize, error) {
	var b models.BoxSize
	var l, br, h string
	err := s.db.QueryRow(ctx, `SELECT id, length::text, breadth::text, height::text FROM shipping_box_sizes WHERE id = $1`, id).
		Scan(&b.ID, &l, &br, &h)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select box size")
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&b.Length, l}, {&b.Breadth, br}, {&b.Height, h}} {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, errors.Wrap(err, "parse box size")
		}
		*f.dst = v
	}
	return &b, nil
}

// ListReconcilableOrders returns every Shiprocket order that is not yet
// delivered and has an external order id. Lines are not loaded.
func (s *Storage) ListReconcilableOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+`
FROM orders o
WHERE o.shipping_method = $1
  AND o.delivery_status <> $2
  AND o.shiprocket_order_id IS NOT NULL
ORDER BY o.id
`, models.ShippingMethodShiprocket, models.DeliveryDelivered)
	if err != nil {
		return nil, errors.Wrap(err, "select reconcilable orders")
	}
	defer rows.Close()

	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan reconcilable order")
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ApplyShipmentUpdate writes the non-nil fields of upd in one statement.
func (s *Storage) ApplyShipmentUpdate(ctx context.Context, upd models.ShipmentUpdate) error {
	if upd.Empty() {
		return nil
	}

	var sets []string
	args := []any{upd.OrderID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.ShippingMethod != nil {
		add("shipping_method", *upd.ShippingMethod)
	}
	if upd.PickupAddressID != nil {
		add("pickup_address_id", *upd.PickupAddressID)
	}
	if upd.ExternalOrderID != nil {
		add("shiprocket_order_id", *upd.ExternalOrderID)
	}
	if upd.ExternalShipmentID != nil {
		add("shiprocket_shipment_id", *upd.ExternalShipmentID)
	}
	if upd.ExternalStatusCode != nil {
		add("shiprocket_status_code", *upd.ExternalStatusCode)
	}
	if upd.ExternalStatus != nil {
		add("shiprocket_status", *upd.ExternalStatus)
	}
	if upd.DeliveryStatus != nil {
		add("delivery_status", *upd.DeliveryStatus)
	}
	if upd.PaymentStatus != nil {
		add("payment_status", *upd.PaymentStatus)
	}
	if upd.AWBCode != nil {
		add("shiprocket_awb", *upd.AWBCode)
	}
	if upd.CourierID != nil {
		add("shiprocket_courier_id", *upd.CourierID)
	}
	if upd.CourierName != nil {
		add("shiprocket_courier_name", *upd.CourierName)
	}
	if upd.AWBAssignedAt != nil {
		add("awb_assigned_at", upd.AWBAssignedAt.UTC())
	}
	if upd.LabelURL != nil {
		add("shiprocket_label_url", *upd.LabelURL)
	}
	if upd.ManifestURL != nil {
		add("shiprocket_manifest_url", *upd.ManifestURL)
	}
	if upd.PickupScheduledAt != nil {
		add("pickup_scheduled_at", upd.PickupScheduledAt.UTC())
	}
	if upd.PickupToken != nil {
		add("pickup_token", *upd.PickupToken)
	}
	add("updated_at", time.Now().UTC())

	tag, err := s.db.Exec(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return errors.Wrap(err, "update order shipment")
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
