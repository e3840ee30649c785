package messages

import "time"

// ShipmentStatusChanged is emitted after the reconciler persists a new
// delivery phase for an order. Key: order id.
type ShipmentStatusChanged struct {
	OrderID         int64 `json:"order_id"`
	MerchantID      int64 `json:"merchant_id"`
	ExternalOrderID int64 `json:"external_order_id"`

	PreviousDeliveryStatus string `json:"previous_delivery_status"`
	DeliveryStatus         string `json:"delivery_status"`

	ExternalStatusCode int    `json:"external_status_code"`
	ExternalStatus     string `json:"external_status"`
	PaymentStatus      string `json:"payment_status,omitempty"`

	ChangedAt time.Time `json:"changed_at"`
}
