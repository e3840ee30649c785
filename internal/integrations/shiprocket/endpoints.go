package shiprocket

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) CreateAdhocOrder(ctx context.Context, merchantID int64, order AdhocOrder) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if err := c.do(ctx, merchantID, "orders/create/adhoc", http.MethodPost, "orders/create/adhoc", nil, order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches orders/show/{id}; the reconciler reads status from it and
// courier lookup reads pincodes and parcel size.
func (c *Client) GetOrder(ctx context.Context, merchantID, externalOrderID int64) (*OrderDetails, error) {
	var out OrderDetails
	path := "orders/show/" + strconv.FormatInt(externalOrderID, 10)
	if err := c.do(ctx, merchantID, "orders/show", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CourierServiceability(ctx context.Context, merchantID int64, q ServiceabilityQuery) (*ServiceabilityResponse, error) {
	v := url.Values{}
	v.Set("pickup_postcode", q.PickupPostcode)
	v.Set("delivery_postcode", q.DeliveryPostcode)
	v.Set("weight", q.Weight)
	v.Set("length", formatFloat(q.Length))
	v.Set("breadth", formatFloat(q.Breadth))
	v.Set("height", formatFloat(q.Height))
	if q.COD {
		v.Set("cod", "1")
	} else {
		v.Set("cod", "0")
	}

	var out ServiceabilityResponse
	if err := c.do(ctx, merchantID, "courier/serviceability", http.MethodGet, "courier/serviceability/", v, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type assignAWBRequest struct {
	ShipmentID int64 `json:"shipment_id"`
	CourierID  int64 `json:"courier_id"`
}

func (c *Client) AssignAWB(ctx context.Context, merchantID, shipmentID, courierID int64) (*AssignAWBResponse, error) {
	var out AssignAWBResponse
	if err := c.do(ctx, merchantID, "courier/assign/awb", http.MethodPost, "courier/assign/awb", nil,
		assignAWBRequest{ShipmentID: shipmentID, CourierID: courierID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type shipmentIDsRequest struct {
	ShipmentID []int64 `json:"shipment_id"`
}

func (c *Client) GenerateLabel(ctx context.Context, merchantID, shipmentID int64) (*LabelResponse, error) {
	var out LabelResponse
	if err := c.do(ctx, merchantID, "courier/generate/label", http.MethodPost, "courier/generate/label", nil,
		shipmentIDsRequest{ShipmentID: []int64{shipmentID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateManifest(ctx context.Context, merchantID, shipmentID int64) (*ManifestResponse, error) {
	var out ManifestResponse
	if err := c.do(ctx, merchantID, "manifests/generate", http.MethodPost, "manifests/generate", nil,
		shipmentIDsRequest{ShipmentID: []int64{shipmentID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetShipment(ctx context.Context, merchantID, shipmentID int64) (*ShipmentDetails, error) {
	var out ShipmentDetails
	path := "shipments/" + strconv.FormatInt(shipmentID, 10)
	if err := c.do(ctx, merchantID, "shipments", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GeneratePickup(ctx context.Context, merchantID int64, shipmentIDs ...int64) (*PickupResponse, error) {
	var out PickupResponse
	if err := c.do(ctx, merchantID, "courier/generate/pickup", http.MethodPost, "courier/generate/pickup", nil,
		shipmentIDsRequest{ShipmentID: shipmentIDs}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
