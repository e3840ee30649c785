package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Internal delivery phases.
const (
	DeliveryConfirmed = "confirmed"
	DeliveryPickedUp  = "picked_up"
	DeliveryOnTheWay  = "on_the_way"
	DeliveryDelivered = "delivered"
	DeliveryCancelled = "cancelled"
)

const (
	PaymentPaid = "paid"

	ShippingMethodShiprocket = "shiprocket"
)

var ErrNotFound = errors.New("not found")

type Credential struct {
	MerchantID int64
	Email      string
	Secret     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type User struct {
	ID    int64
	Name  string
	Email string
	Phone string
}

type Product struct {
	ID      int64
	Name    string
	Weight  decimal.NullDecimal
	HSNCode string
	SKU     string // first stock record
}

type OrderLine struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Product   *Product
}

type PickupAddress struct {
	ID         int64
	MerchantID int64
	Nickname   string
}

type BoxSize struct {
	ID      int64
	Length  decimal.Decimal
	Breadth decimal.Decimal
	Height  decimal.Decimal
}

// Shipment holds the carrier fields grafted onto the host order row.
type Shipment struct {
	ShippingMethod     string
	PickupAddressID    *int64
	ExternalOrderID    *int64
	ExternalShipmentID *int64
	ExternalStatusCode int
	ExternalStatus     *string
	AWBCode            *string
	CourierID          *int64
	CourierName        *string
	AWBAssignedAt      *time.Time
	LabelURL           *string
	ManifestURL        *string
	PickupScheduledAt  *time.Time
	PickupToken        *string
}

type Order struct {
	ID              int64
	MerchantID      int64
	UserID          int64
	Owner           *User
	ShippingAddress []byte
	BillingAddress  []byte
	PaymentStatus   string
	DeliveryStatus  string
	GrandTotal      decimal.Decimal
	Lines           []OrderLine
	Shipment        Shipment
	UpdatedAt       time.Time
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// ShipmentUpdate is a partial update of an order; nil fields are left untouched.
type ShipmentUpdate struct {
	OrderID int64

	ShippingMethod     *string
	PickupAddressID    *int64
	ExternalOrderID    *int64
	ExternalShipmentID *int64
	ExternalStatusCode *int
	ExternalStatus     *string
	DeliveryStatus     *string
	PaymentStatus      *string
	AWBCode            *string
	CourierID          *int64
	CourierName        *string
	AWBAssignedAt      *time.Time
	LabelURL           *string
	ManifestURL        *string
	PickupScheduledAt  *time.Time
	PickupToken        *string
}

func (u ShipmentUpdate) Empty() bool {
	return u.ShippingMethod == nil && u.PickupAddressID == nil &&
		u.ExternalOrderID == nil && u.ExternalShipmentID == nil &&
		u.ExternalStatusCode == nil && u.ExternalStatus == nil &&
		u.DeliveryStatus == nil && u.PaymentStatus == nil &&
		u.AWBCode == nil && u.CourierID == nil && u.CourierName == nil &&
		u.AWBAssignedAt == nil && u.LabelURL == nil && u.ManifestURL == nil &&
		u.PickupScheduledAt == nil && u.PickupToken == nil
}

// CachedToken is the value stored in the token cache.
type CachedToken struct {
	MerchantID int64     `json:"merchant_id"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}
