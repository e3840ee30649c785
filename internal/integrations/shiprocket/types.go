package shiprocket

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/araddon/dateparse"
)

// Text tolerates fields Shiprocket sends as either strings or numbers.
type Text = models.FlexString

type OrderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
	Discount     string  `json:"discount"`
	Tax          string  `json:"tax"`
	HSN          string  `json:"hsn"`
}

// AdhocOrder is the orders/create/adhoc request body.
type AdhocOrder struct {
	OrderID        string `json:"order_id"`
	OrderDate      string `json:"order_date"`
	PickupLocation string `json:"pickup_location"`
	Comment        string `json:"comment"`
	ResellerName   string `json:"reseller_name"`
	CompanyName    string `json:"company_name"`

	BillingCustomerName   string `json:"billing_customer_name"`
	BillingLastName       string `json:"billing_last_name"`
	BillingAddress        string `json:"billing_address"`
	BillingAddress2       string `json:"billing_address_2"`
	BillingISDCode        string `json:"billing_isd_code"`
	BillingCity           string `json:"billing_city"`
	BillingPincode        string `json:"billing_pincode"`
	BillingState          string `json:"billing_state"`
	BillingCountry        string `json:"billing_country"`
	BillingEmail          string `json:"billing_email"`
	BillingPhone          string `json:"billing_phone"`
	BillingAlternatePhone string `json:"billing_alternate_phone"`

	ShippingIsBilling    bool   `json:"shipping_is_billing"`
	ShippingCustomerName string `json:"shipping_customer_name"`
	ShippingLastName     string `json:"shipping_last_name"`
	ShippingAddress      string `json:"shipping_address"`
	ShippingAddress2     string `json:"shipping_address_2"`
	ShippingCity         string `json:"shipping_city"`
	ShippingPincode      string `json:"shipping_pincode"`
	ShippingState        string `json:"shipping_state"`
	ShippingCountry      string `json:"shipping_country"`
	ShippingEmail        string `json:"shipping_email"`
	ShippingPhone        string `json:"shipping_phone"`

	OrderItems []OrderItem `json:"order_items"`

	PaymentMethod      string  `json:"payment_method"`
	ShippingCharges    string  `json:"shipping_charges"`
	GiftwrapCharges    string  `json:"giftwrap_charges"`
	TransactionCharges string  `json:"transaction_charges"`
	TotalDiscount      float64 `json:"total_discount"`
	SubTotal           float64 `json:"sub_total"`

	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`

	EwaybillNo    string `json:"ewaybill_no"`
	CustomerGSTIN string `json:"customer_gstin"`
	InvoiceNumber string `json:"invoice_number"`
	OrderType     string `json:"order_type"`
}

type CreateOrderResponse struct {
	OrderID    Text   `json:"order_id"`
	ShipmentID Text   `json:"shipment_id"`
	Status     Text   `json:"status"`
	StatusCode Text   `json:"status_code"`
	Message    string `json:"message"`
}

type OrderDetails struct {
	Data *OrderData `json:"data"`
}

type OrderData struct {
	ID              Text             `json:"id"`
	Status          Text             `json:"status"`
	StatusCode      Text             `json:"status_code"`
	PickupCode      Text             `json:"pickup_code"`
	CustomerPincode Text             `json:"customer_pincode"`
	Shipments       *ShipmentSummary `json:"shipments"`
}

type ShipmentSummary struct {
	ID         Text `json:"id"`
	Weight     Text `json:"weight"`
	Dimensions Text `json:"dimensions"`
}

// UnmarshalJSON accepts a single object or a list of them (first wins).
func (s *ShipmentSummary) UnmarshalJSON(b []byte) error {
	type plain ShipmentSummary
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var list []plain
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		if len(list) > 0 {
			*s = ShipmentSummary(list[0])
		}
		return nil
	}
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = ShipmentSummary(p)
	return nil
}

type ServiceabilityQuery struct {
	PickupPostcode   string
	DeliveryPostcode string
	Weight           string
	Length           float64
	Breadth          float64
	Height           float64
	COD              bool
}

type ServiceabilityResponse struct {
	Data ServiceabilityData `json:"data"`
}

type ServiceabilityData struct {
	AvailableCourierCompanies []CourierCompany `json:"available_courier_companies"`
}

// UnmarshalJSON treats anything but an object as an empty result.
func (d *ServiceabilityData) UnmarshalJSON(b []byte) error {
	type plain ServiceabilityData
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		*d = ServiceabilityData{}
		return nil
	}
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*d = ServiceabilityData(p)
	return nil
}

type CourierCompany struct {
	CourierCompanyID Text   `json:"courier_company_id"`
	CourierName      string `json:"courier_name"`
}

type AssignAWBResponse struct {
	AWBAssignStatus Text   `json:"awb_assign_status"`
	Message         string `json:"message"`
}

// Assigned reports whether awb_assign_status is truthy.
func (r AssignAWBResponse) Assigned() bool {
	switch strings.ToLower(strings.TrimSpace(string(r.AWBAssignStatus))) {
	case "", "0", "false":
		return false
	}
	return true
}

type ShipmentDetails struct {
	Data *ShipmentData `json:"data"`
}

type ShipmentData struct {
	ID              Text `json:"id"`
	AWB             Text `json:"awb"`
	AWBAssignedDate Text `json:"awb_assigned_date"`
	Courier         Text `json:"courier"`
	SRCourierID     Text `json:"sr_courier_id"`
}

type LabelResponse struct {
	LabelCreated Text   `json:"label_created"`
	LabelURL     string `json:"label_url"`
}

type ManifestResponse struct {
	Status      Text   `json:"status"`
	ManifestURL string `json:"manifest_url"`
}

type PickupResponse struct {
	PickupStatus Text          `json:"pickup_status"`
	Response     PickupDetails `json:"response"`
}

type PickupDetails struct {
	Data                Text          `json:"data"`
	PickupTokenNumber   Text          `json:"pickup_token_number"`
	PickupScheduledDate Text          `json:"pickup_scheduled_date"`
	PickupGeneratedDate generatedDate `json:"pickup_generated_date"`
}

// generatedDate is either a plain string or a {"date": "..."} object.
type generatedDate struct {
	Date Text `json:"date"`
}

func (g *generatedDate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == 'n' {
		return nil
	}
	if b[0] == '{' {
		type plain generatedDate
		var p plain
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*g = generatedDate(p)
		return nil
	}
	return g.Date.UnmarshalJSON(b)
}

// Succeeded mirrors how Shiprocket signals an accepted pickup: either
// pickup_status is 1 or the response message mentions a pickup.
func (p PickupResponse) Succeeded() bool {
	if n, ok := p.PickupStatus.Int64(); ok && n == 1 {
		return true
	}
	return strings.Contains(strings.ToLower(string(p.Response.Data)), "pickup")
}

// ScheduledAt prefers pickup_scheduled_date and falls back to
// pickup_generated_date.date.
func (p PickupResponse) ScheduledAt() (time.Time, bool) {
	if t, ok := ParseTime(string(p.Response.PickupScheduledDate)); ok {
		return t, true
	}
	return ParseTime(string(p.Response.PickupGeneratedDate.Date))
}

// IST is the zone Shiprocket reports naive timestamps in.
var IST = time.FixedZone("IST", 5*3600+30*60)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02 Jan 2006 15:04",
	"02 Jan 2006",
}

// ParseTime parses the timestamp formats Shiprocket is known to emit and
// falls back to dateparse for anything else. Naive values are read as IST.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, IST); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(s, IST)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
