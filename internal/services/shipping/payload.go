package shipping

import (
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ShipBridge/internal/integrations/shiprocket"
	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultCustomerName = "Customer"
	defaultProductName  = "Product"
	defaultHSN          = "000000"
	defaultCompanyName  = "Active Ecommerce CMS"
	skuPlaceholderLen   = 12
	maxSKUAttempts      = 5
)

var minWeight = decimal.RequireFromString("0.1")

// PayloadBuilder maps a host order into the orders/create/adhoc body.
type PayloadBuilder struct {
	companyName string
	now         func() time.Time
	newSKU      func() string
}

func NewPayloadBuilder(companyName string) *PayloadBuilder {
	if strings.TrimSpace(companyName) == "" {
		companyName = defaultCompanyName
	}
	return &PayloadBuilder{companyName: companyName, now: time.Now, newSKU: randomSKU}
}

func (b *PayloadBuilder) WithClock(now func() time.Time) *PayloadBuilder {
	if now != nil {
		b.now = now
	}
	return b
}

func (b *PayloadBuilder) WithSKUGenerator(gen func() string) *PayloadBuilder {
	if gen != nil {
		b.newSKU = gen
	}
	return b
}

// randomSKU returns 12 uppercase hex characters taken from a v4 uuid.
func randomSKU() string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:skuPlaceholderLen]
}

// BuildShipmentPayload never fails: every absent input falls back to a
// fixed default. The external order id is fresh on every call.
func (b *PayloadBuilder) BuildShipmentPayload(order *models.Order, pickup *models.PickupAddress, box *models.BoxSize) shiprocket.AdhocOrder {
	now := b.now().In(shiprocket.IST)
	shipping := models.ParseAddress(order.ShippingAddress)
	billing := models.ParseAddress(order.BillingAddress)

	var owner models.User
	if order.Owner != nil {
		owner = *order.Owner
	}
	name := firstNonBlank(shipping.Name.String(), owner.Name, defaultCustomerName)
	phone := firstNonBlank(shipping.Phone.String(), owner.Phone)
	email := firstNonBlank(shipping.Email.String(), owner.Email)

	items, weight := b.orderItems(order.Lines)

	paymentMethod := "COD"
	if order.IsPaid() {
		paymentMethod = "Prepaid"
	}

	p := shiprocket.AdhocOrder{
		OrderID:        fmt.Sprintf("ORDER-%d%d", now.Unix(), order.ID),
		OrderDate:      now.Format("2006-01-02 15:04"),
		PickupLocation: pickupLocation(pickup),
		CompanyName:    b.companyName,

		BillingCustomerName: name,
		BillingAddress:      billing.Address.String(),
		BillingCity:         billing.City.String(),
		BillingPincode:      billing.PostalCode.String(),
		BillingState:        billing.State.String(),
		BillingCountry:      billing.Country.String(),
		BillingEmail:        email,
		BillingPhone:        phone,

		ShippingIsBilling:    false,
		ShippingCustomerName: firstNonBlank(shipping.Name.String(), name),
		ShippingAddress:      shipping.Address.String(),
		ShippingCity:         shipping.City.String(),
		ShippingPincode:      shipping.PostalCode.String(),
		ShippingState:        shipping.State.String(),
		ShippingCountry:      shipping.Country.String(),
		ShippingEmail:        firstNonBlank(shipping.Email.String(), email),
		ShippingPhone:        firstNonBlank(shipping.Phone.String(), phone),

		OrderItems: items,

		PaymentMethod: paymentMethod,
		TotalDiscount: 0,
		SubTotal:      order.GrandTotal.InexactFloat64(),

		Weight: weight.InexactFloat64(),

		InvoiceNumber: fmt.Sprintf("INV-%d", now.Unix()),
	}
	if box != nil {
		p.Length = box.Length.InexactFloat64()
		p.Breadth = box.Breadth.InexactFloat64()
		p.Height = box.Height.InexactFloat64()
	}
	return p
}

func (b *PayloadBuilder) orderItems(lines []models.OrderLine) ([]shiprocket.OrderItem, decimal.Decimal) {
	items := make([]shiprocket.OrderItem, 0, len(lines))
	total := decimal.Zero
	seen := make(map[string]struct{}, len(lines))

	for _, l := range lines {
		var product models.Product
		if l.Product != nil {
			product = *l.Product
		}

		total = total.Add(lineWeight(product, l.Quantity))

		sku := strings.TrimSpace(product.SKU)
		if sku == "" {
			sku = b.placeholderSKU(seen)
		}

		units := l.Quantity
		if units < 1 {
			units = 1
		}
		items = append(items, shiprocket.OrderItem{
			Name:         firstNonBlank(product.Name, defaultProductName),
			SKU:          sku,
			Units:        l.Quantity,
			SellingPrice: l.Price.Div(decimal.NewFromInt(int64(units))).Round(2).InexactFloat64(),
			HSN:          firstNonBlank(product.HSNCode, defaultHSN),
		})
	}

	return items, decimal.Max(total, minWeight)
}

// lineWeight is max(quantity * unit weight, 0.1); a missing or non-positive
// product weight counts as 0.1 per unit.
func lineWeight(p models.Product, qty int) decimal.Decimal {
	unit := minWeight
	if p.Weight.Valid && p.Weight.Decimal.IsPositive() {
		unit = p.Weight.Decimal
	}
	return decimal.Max(unit.Mul(decimal.NewFromInt(int64(qty))), minWeight)
}

// placeholderSKU asks the generator a bounded number of times, then makes
// the last candidate unique with a numeric suffix.
func (b *PayloadBuilder) placeholderSKU(seen map[string]struct{}) string {
	var sku string
	for range maxSKUAttempts {
		sku = "NA-" + b.newSKU()
		if _, dup := seen[sku]; !dup {
			seen[sku] = struct{}{}
			return sku
		}
	}
	for i := len(seen) + 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", sku, i)
		if _, dup := seen[candidate]; !dup {
			seen[candidate] = struct{}{}
			return candidate
		}
	}
}

// MissingAddressFields lists the address fields Shiprocket requires that
// the payload leaves empty.
func MissingAddressFields(p shiprocket.AdhocOrder) []string {
	fields := []struct {
		name, value string
	}{
		{"billing_address", p.BillingAddress},
		{"billing_city", p.BillingCity},
		{"billing_pincode", p.BillingPincode},
		{"billing_state", p.BillingState},
		{"billing_country", p.BillingCountry},
		{"billing_phone", p.BillingPhone},
		{"shipping_address", p.ShippingAddress},
		{"shipping_city", p.ShippingCity},
		{"shipping_pincode", p.ShippingPincode},
		{"shipping_state", p.ShippingState},
		{"shipping_country", p.ShippingCountry},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func pickupLocation(p *models.PickupAddress) string {
	if p == nil {
		return ""
	}
	return p.Nickname
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
