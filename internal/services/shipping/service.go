package shipping

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"github.com/BearBump/ShipBridge/internal/integrations/shiprocket"
	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Repository interface {
	SaveCredential(ctx context.Context, c models.Credential) error
	CredentialEmailTaken(ctx context.Context, email string, merchantID int64) (bool, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	GetPickupAddress(ctx context.Context, id int64) (*models.PickupAddress, error)
	GetBoxSize(ctx context.Context, id int64) (*models.BoxSize, error)
	ApplyShipmentUpdate(ctx context.Context, upd models.ShipmentUpdate) error
}

// Carrier is the subset of the Shiprocket client the operations use.
type Carrier interface {
	CreateAdhocOrder(ctx context.Context, merchantID int64, order shiprocket.AdhocOrder) (*shiprocket.CreateOrderResponse, error)
	GetOrder(ctx context.Context, merchantID, externalOrderID int64) (*shiprocket.OrderDetails, error)
	CourierServiceability(ctx context.Context, merchantID int64, q shiprocket.ServiceabilityQuery) (*shiprocket.ServiceabilityResponse, error)
	AssignAWB(ctx context.Context, merchantID, shipmentID, courierID int64) (*shiprocket.AssignAWBResponse, error)
	GenerateLabel(ctx context.Context, merchantID, shipmentID int64) (*shiprocket.LabelResponse, error)
	GenerateManifest(ctx context.Context, merchantID, shipmentID int64) (*shiprocket.ManifestResponse, error)
	GetShipment(ctx context.Context, merchantID, shipmentID int64) (*shiprocket.ShipmentDetails, error)
	GeneratePickup(ctx context.Context, merchantID int64, shipmentIDs ...int64) (*shiprocket.PickupResponse, error)
}

type TokenInvalidator interface {
	Invalidate(ctx context.Context, merchantID int64) error
}

type Service struct {
	repo     Repository
	carrier  Carrier
	tokens   TokenInvalidator
	payload  *PayloadBuilder
	validate *validator.Validate
	logger   *zap.Logger
}

func New(repo Repository, carrier Carrier, tokens TokenInvalidator, payload *PayloadBuilder, logger *zap.Logger) *Service {
	if payload == nil {
		payload = NewPayloadBuilder("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		repo:     repo,
		carrier:  carrier,
		tokens:   tokens,
		payload:  payload,
		validate: validate,
		logger:   logger,
	}
}

type CredentialInput struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

func (s *Service) SaveCredential(ctx context.Context, merchantID int64, in CredentialInput) (Result, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(in); err != nil {
		return Result{}, err
	}

	taken, err := s.repo.CredentialEmailTaken(ctx, in.Email, merchantID)
	if err != nil {
		return Result{}, err
	}
	if taken {
		return Result{}, &ValidationError{Field: "email", Message: "has already been taken"}
	}

	if err := s.repo.SaveCredential(ctx, models.Credential{MerchantID: merchantID, Email: in.Email, Secret: in.Secret}); err != nil {
		return Result{}, err
	}
	if s.tokens != nil {
		if err := s.tokens.Invalidate(ctx, merchantID); err != nil {
			s.logger.Warn("token invalidation failed", zap.Int64("merchant_id", merchantID), zap.Error(err))
		}
	}
	return okResult("Shiprocket credential has been updated successfully"), nil
}

type CreateShipmentInput struct {
	OrderID         int64 `json:"order_id" validate:"required,gt=0"`
	PickupAddressID int64 `json:"pickup_address_id" validate:"required,gt=0"`
	BoxSizeID       int64 `json:"box_size_id" validate:"required,gt=0"`
}

// CreateShipment submits the order to Shiprocket and records the external
// ids on it. An order that already carries an external id is rejected.
func (s *Service) CreateShipment(ctx context.Context, merchantID int64, in CreateShipmentInput) (CreateShipmentResult, error) {
	if err := s.check(in); err != nil {
		return CreateShipmentResult{}, err
	}
	order, err := s.loadOrder(ctx, merchantID, in.OrderID)
	if err != nil {
		return CreateShipmentResult{}, err
	}
	if order.Shipment.ExternalOrderID != nil {
		return CreateShipmentResult{Result: rejected("Order already exists in Shiprocket.")}, nil
	}

	pickup, err := s.repo.GetPickupAddress(ctx, in.PickupAddressID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && pickup.MerchantID != merchantID) {
		return CreateShipmentResult{}, notFound("pickup_address_id", "pickup address")
	}
	if err != nil {
		return CreateShipmentResult{}, err
	}
	box, err := s.repo.GetBoxSize(ctx, in.BoxSizeID)
	if errors.Is(err, models.ErrNotFound) {
		return CreateShipmentResult{}, notFound("box_size_id", "box size")
	}
	if err != nil {
		return CreateShipmentResult{}, err
	}

	payload := s.payload.BuildShipmentPayload(order, pickup, box)
	if missing := MissingAddressFields(payload); len(missing) > 0 {
		s.logger.Warn("submitting shipment with empty address fields",
			zap.Int64("order_id", order.ID), zap.Strings("fields", missing))
	}

	resp, err := s.carrier.CreateAdhocOrder(ctx, merchantID, payload)
	if err != nil {
		return CreateShipmentResult{}, errors.Wrap(err, "create shiprocket order")
	}

	extOrderID, ok := resp.OrderID.Int64()
	if !ok {
		msg := resp.Message
		if msg == "" {
			msg = "Shiprocket did not return an order id."
		}
		return CreateShipmentResult{Result: rejected(msg)}, nil
	}

	method := models.ShippingMethodShiprocket
	confirmed := models.DeliveryConfirmed
	code := 0
	if n, ok := resp.StatusCode.Int64(); ok {
		code = int(n)
	}
	status := strings.ToLower(resp.Status.String())
	upd := models.ShipmentUpdate{
		OrderID:            order.ID,
		ShippingMethod:     &method,
		PickupAddressID:    &pickup.ID,
		ExternalOrderID:    &extOrderID,
		ExternalStatusCode: &code,
		ExternalStatus:     &status,
		DeliveryStatus:     &confirmed,
	}
	out := CreateShipmentResult{Result: okResult("Order created in Shiprocket successfully"), ExternalOrderID: extOrderID}
	if shipmentID, ok := resp.ShipmentID.Int64(); ok {
		upd.ExternalShipmentID = &shipmentID
		out.ExternalShipmentID = shipmentID
	}
	if err := s.repo.ApplyShipmentUpdate(ctx, upd); err != nil {
		return CreateShipmentResult{}, errors.Wrapf(err, "save shiprocket order %d", extOrderID)
	}

	s.logger.Info("shiprocket order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("shiprocket_order_id", extOrderID),
		zap.Int64("shiprocket_shipment_id", out.ExternalShipmentID))
	return out, nil
}

func (s *Service) Couriers(ctx context.Context, merchantID, orderID int64) (CouriersResult, error) {
	order, err := s.loadOrder(ctx, merchantID, orderID)
	if err != nil {
		return CouriersResult{}, err
	}
	if order.Shipment.ExternalOrderID == nil || order.Shipment.ExternalShipmentID == nil {
		return CouriersResult{Result: rejected("Shiprocket order not found.")}, nil
	}

	details, err := s.carrier.GetOrder(ctx, merchantID, *order.Shipment.ExternalOrderID)
	if err != nil {
		return CouriersResult{}, errors.Wrap(err, "fetch shiprocket order")
	}
	if details.Data == nil {
		return CouriersResult{Result: rejected("Invalid order data from Shiprocket.")}, nil
	}
	data := details.Data

	if data.PickupCode.Blank() || data.CustomerPincode.Blank() {
		return CouriersResult{Result: rejected("Missing pickup or delivery pincode.")}, nil
	}
	if data.Shipments == nil || data.Shipments.Weight.Blank() {
		return CouriersResult{Result: rejected("Invalid parcel data from Shiprocket.")}, nil
	}
	dims, ok := parseDimensions(data.Shipments.Dimensions.String())
	if !ok {
		return CouriersResult{Result: rejected("Invalid parcel data from Shiprocket.")}, nil
	}

	resp, err := s.carrier.CourierServiceability(ctx, merchantID, shiprocket.ServiceabilityQuery{
		PickupPostcode:   data.PickupCode.String(),
		DeliveryPostcode: data.CustomerPincode.String(),
		Weight:           strings.TrimSpace(data.Shipments.Weight.String()),
		Length:           dims[0],
		Breadth:          dims[1],
		Height:           dims[2],
		COD:              !order.IsPaid(),
	})
	if err != nil {
		return CouriersResult{}, errors.Wrap(err, "courier serviceability")
	}

	couriers := make([]Courier, 0, len(resp.Data.AvailableCourierCompanies))
	for _, c := range resp.Data.AvailableCourierCompanies {
		id, ok := c.CourierCompanyID.Int64()
		if !ok {
			continue
		}
		couriers = append(couriers, Courier{ID: id, Name: c.CourierName})
	}
	if len(couriers) == 0 {
		return CouriersResult{Result: rejected("No couriers available for this route.")}, nil
	}
	return CouriersResult{Result: okResult("Couriers fetched successfully"), Couriers: couriers}, nil
}

// parseDimensions splits "LxBxH" into three numbers.
func parseDimensions(s string) ([3]float64, bool) {
	var out [3]float64
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 3 {
		return out, false
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, false
		}
		out[i] = f
	}
	return out, true
}

type AssignAWBInput struct {
	OrderID   int64 `json:"order_id" validate:"required,gt=0"`
	CourierID int64 `json:"courier_id" validate:"required,gt=0"`
}

func (s *Service) AssignAWB(ctx context.Context, merchantID int64, in AssignAWBInput) (AWBResult, error) {
	if err := s.check(in); err != nil {
		return AWBResult{}, err
	}
	order, err := s.loadOrder(ctx, merchantID, in.OrderID)
	if err != nil {
		return AWBResult{}, err
	}
	if order.Shipment.ExternalShipmentID == nil {
		return AWBResult{Result: rejected("Shipment ID missing.")}, nil
	}
	shipmentID := *order.Shipment.ExternalShipmentID

	resp, err := s.carrier.AssignAWB(ctx, merchantID, shipmentID, in.CourierID)
	if shiprocket.IsClientRejection(err) {
		return AWBResult{Result: rejected(orDefault(shiprocket.ProviderMessage(err), "AWB assignment failed."))}, nil
	}
	if err != nil {
		return AWBResult{}, errors.Wrap(err, "assign awb")
	}
	if !resp.Assigned() {
		return AWBResult{Result: rejected(orDefault(resp.Message, "AWB assignment failed."))}, nil
	}

	details, err := s.carrier.GetShipment(ctx, merchantID, shipmentID)
	if err != nil {
		return AWBResult{}, errors.Wrap(err, "fetch shipment after awb assignment")
	}
	upd := models.ShipmentUpdate{OrderID: order.ID}
	var awb string
	if d := details.Data; d != nil {
		awb = d.AWB.String()
		if !d.AWB.Blank() {
			upd.AWBCode = &awb
		}
		if id, ok := d.SRCourierID.Int64(); ok {
			upd.CourierID = &id
		}
		if !d.Courier.Blank() {
			name := d.Courier.String()
			upd.CourierName = &name
		}
		if at, ok := shiprocket.ParseTime(d.AWBAssignedDate.String()); ok {
			upd.AWBAssignedAt = &at
		}
	}
	if err := s.repo.ApplyShipmentUpdate(ctx, upd); err != nil {
		return AWBResult{}, errors.Wrap(err, "save awb")
	}
	return AWBResult{Result: okResult("AWB generated successfully!"), AWBCode: awb}, nil
}

func (s *Service) Label(ctx context.Context, merchantID, orderID int64) (DocumentResult, error) {
	order, err := s.loadOrder(ctx, merchantID, orderID)
	if err != nil {
		return DocumentResult{}, err
	}
	if order.Shipment.ExternalShipmentID == nil {
		return DocumentResult{Result: rejected("Shipment ID missing.")}, nil
	}

	resp, err := s.carrier.GenerateLabel(ctx, merchantID, *order.Shipment.ExternalShipmentID)
	if err != nil {
		return DocumentResult{}, errors.Wrap(err, "generate label")
	}
	url := strings.TrimSpace(resp.LabelURL)
	if url == "" {
		return DocumentResult{Result: rejected("Label not available yet.")}, nil
	}
	if err := s.repo.ApplyShipmentUpdate(ctx, models.ShipmentUpdate{OrderID: order.ID, LabelURL: &url}); err != nil {
		return DocumentResult{}, errors.Wrap(err, "save label url")
	}
	return DocumentResult{Result: okResult("Label generated"), URL: url}, nil
}

func (s *Service) Manifest(ctx context.Context, merchantID, orderID int64) (DocumentResult, error) {
	order, err := s.loadOrder(ctx, merchantID, orderID)
	if err != nil {
		return DocumentResult{}, err
	}
	if order.Shipment.ExternalShipmentID == nil {
		return DocumentResult{Result: rejected("Shipment ID missing.")}, nil
	}

	resp, err := s.carrier.GenerateManifest(ctx, merchantID, *order.Shipment.ExternalShipmentID)
	if err != nil {
		return DocumentResult{}, errors.Wrap(err, "generate manifest")
	}
	url := strings.TrimSpace(resp.ManifestURL)
	if url == "" {
		return DocumentResult{Result: rejected("Manifest not available yet.")}, nil
	}
	if err := s.repo.ApplyShipmentUpdate(ctx, models.ShipmentUpdate{OrderID: order.ID, ManifestURL: &url}); err != nil {
		return DocumentResult{}, errors.Wrap(err, "save manifest url")
	}
	return DocumentResult{Result: okResult("Manifest generated"), URL: url}, nil
}

// RequestPickup schedules a courier pickup once per order. A second call is
// rejected locally without contacting Shiprocket.
func (s *Service) RequestPickup(ctx context.Context, merchantID, orderID int64) (PickupResult, error) {
	order, err := s.loadOrder(ctx, merchantID, orderID)
	if err != nil {
		return PickupResult{}, err
	}
	sh := order.Shipment
	if sh.ExternalShipmentID == nil || sh.AWBCode == nil || strings.TrimSpace(*sh.AWBCode) == "" {
		return PickupResult{Result: rejected("AWB not generated yet")}, nil
	}
	if sh.PickupScheduledAt != nil || sh.PickupToken != nil {
		return PickupResult{Result: rejected("Pickup already requested")}, nil
	}

	resp, err := s.carrier.GeneratePickup(ctx, merchantID, *sh.ExternalShipmentID)
	if shiprocket.IsClientRejection(err) {
		return PickupResult{Result: rejected(orDefault(shiprocket.ProviderMessage(err), "Pickup request failed"))}, nil
	}
	if err != nil {
		return PickupResult{}, errors.Wrap(err, "generate pickup")
	}

	message := resp.Response.Data.String()
	if !resp.Succeeded() {
		return PickupResult{Result: rejected(orDefault(message, "Pickup request failed"))}, nil
	}

	// The token column is always written so the guard above holds even when
	// Shiprocket returns neither a token nor a date.
	token := resp.Response.PickupTokenNumber.String()
	upd := models.ShipmentUpdate{OrderID: order.ID, PickupToken: &token}
	out := PickupResult{Result: okResult(orDefault(message, "Pickup requested successfully"))}
	if at, ok := resp.ScheduledAt(); ok {
		upd.PickupScheduledAt = &at
		out.PickupAt = &at
	}
	if err := s.repo.ApplyShipmentUpdate(ctx, upd); err != nil {
		return PickupResult{}, errors.Wrap(err, "save pickup")
	}
	return out, nil
}

// loadOrder hides orders of other merchants behind the same not-found error.
func (s *Service) loadOrder(ctx context.Context, merchantID, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, &ValidationError{Field: "order_id", Message: "is required"}
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && order.MerchantID != merchantID) {
		return nil, notFound("order_id", "order")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: "failed on the '" + fe.Tag() + "' rule"}
	}
	return &ValidationError{Message: err.Error()}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
