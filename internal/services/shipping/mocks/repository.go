package mocks

import (
	"context"

	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SaveCredential(ctx context.Context, c models.Credential) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockRepository) CredentialEmailTaken(ctx context.Context, email string, merchantID int64) (bool, error) {
	args := m.Called(ctx, email, merchantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *MockRepository) GetPickupAddress(ctx context.Context, id int64) (*models.PickupAddress, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.PickupAddress)
	return p, args.Error(1)
}

func (m *MockRepository) GetBoxSize(ctx context.Context, id int64) (*models.BoxSize, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.BoxSize)
	return b, args.Error(1)
}

func (m *MockRepository) ApplyShipmentUpdate(ctx context.Context, upd models.ShipmentUpdate) error {
	return m.Called(ctx, upd).Error(0)
}

type MockTokenInvalidator struct {
	mock.Mock
}

func (m *MockTokenInvalidator) Invalidate(ctx context.Context, merchantID int64) error {
	return m.Called(ctx, merchantID).Error(0)
}
