package mocks

import (
	"context"

	"github.com/BearBump/ShipBridge/internal/integrations/shiprocket"
	"github.com/stretchr/testify/mock"
)

type MockCarrier struct {
	mock.Mock
}

func (m *MockCarrier) CreateAdhocOrder(ctx context.Context, merchantID int64, order shiprocket.AdhocOrder) (*shiprocket.CreateOrderResponse, error) {
	args := m.Called(ctx, merchantID, order)
	r, _ := args.Get(0).(*shiprocket.CreateOrderResponse)
	return r, args.Error(1)
}

func (m *MockCarrier) GetOrder(ctx context.Context, merchantID, externalOrderID int64) (*shiprocket.OrderDetails, error) {
	args := m.Called(ctx, merchantID, externalOrderID)
	r, _ := args.Get(0).(*shiprocket.OrderDetails)
	return r, args.Error(1)
}

func (m *MockCarrier) CourierServiceability(ctx context.Context, merchantID int64, q shiprocket.ServiceabilityQuery) (*shiprocket.ServiceabilityResponse, error) {
	args := m.Called(ctx, merchantID, q)
	r, _ := args.Get(0).(*shiprocket.ServiceabilityResponse)
	return r, args.Error(1)
}

func (m *MockCarrier) AssignAWB(ctx context.Context, merchantID, shipmentID, courierID int64) (*shiprocket.AssignAWBResponse, error) {
	args := m.Called(ctx, merchantID, shipmentID, courierID)
	r, _ := args.Get(0).(*shiprocket.AssignAWBResponse)
	return r, args.Error(1)
}

func (m *MockCarrier) GenerateLabel(ctx context.Context, merchantID, shipmentID int64) (*shiprocket.LabelResponse, error) {
	args := m.Called(ctx, merchantID, shipmentID)
	r, _ := args.Get(0).(*shiprocket.LabelResponse)
	return r, args.Error(1)
}

func (m *MockCarrier) GenerateManifest(ctx context.Context, merchantID, shipmentID int64) (*shiprocket.ManifestResponse, error) {
	args := m.Called(ctx, merchantID, shipmentID)
	r, _ := args.Get(0).(*shiprocket.ManifestResponse)
	return r, args.Error(1)
}

func (m *MockCarrier) GetShipment(ctx context.Context, merchantID, shipmentID int64) (*shiprocket.ShipmentDetails, error) {
	args := m.Called(ctx, merchantID, shipmentID)
	r, _ := args.Get(0).(*shiprocket.ShipmentDetails)
	return r, args.Error(1)
}

func (m *MockCarrier) GeneratePickup(ctx context.Context, merchantID int64, shipmentIDs ...int64) (*shiprocket.PickupResponse, error) {
	args := m.Called(ctx, merchantID, shipmentIDs)
	r, _ := args.Get(0).(*shiprocket.PickupResponse)
	return r, args.Error(1)
}
