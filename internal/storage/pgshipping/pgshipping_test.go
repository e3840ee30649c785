package pgshipping

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/BearBump/ShipBridge/internal/secrets"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "shipbridge_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return "postgres://admin:admin@" + host + ":" + port.Port() + "/shipbridge_test?sslmode=disable"
}

func TestPGShipping_Flow(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	sealer, err := secrets.NewSealer("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	st, err := New(dsn, sealer)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Ping(ctx))

	// credentials
	_, err = st.GetCredential(ctx, 1)
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, st.SaveCredential(ctx, models.Credential{MerchantID: 1, Email: "ops@shop.in", Secret: "pw-1"}))
	require.NoError(t, st.SaveCredential(ctx, models.Credential{MerchantID: 1, Email: "ops@shop.in", Secret: "pw-2"}))
	c, err := st.GetCredential(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "pw-2", c.Secret)

	var stored string
	require.NoError(t, st.db.QueryRow(ctx, `SELECT secret FROM shiprocket_credentials WHERE merchant_id = 1`).Scan(&stored))
	require.NotEqual(t, "pw-2", stored)

	taken, err := st.CredentialEmailTaken(ctx, "OPS@shop.in", 2)
	require.NoError(t, err)
	require.True(t, taken)
	taken, err = st.CredentialEmailTaken(ctx, "ops@shop.in", 1)
	require.NoError(t, err)
	require.False(t, taken)

	// host fixtures
	var userID, orderID, productID, pickupID, boxID int64
	require.NoError(t, st.db.QueryRow(ctx, `INSERT INTO users (name, email, phone) VALUES ('Asha', 'asha@example.in', '9876543210') RETURNING id`).Scan(&userID))
	require.NoError(t, st.db.QueryRow(ctx, `
INSERT INTO orders (merchant_id, user_id, shipping_address, payment_status, delivery_status, grand_total)
VALUES (1, $1, '{"name":"Asha","postal_code":"560001"}', 'unpaid', 'pending', 499.50) RETURNING id`, userID).Scan(&orderID))
	require.NoError(t, st.db.QueryRow(ctx, `INSERT INTO products (name, weight, hsn_code) VALUES ('Mug', 0.350, '6912') RETURNING id`).Scan(&productID))
	_, err = st.db.Exec(ctx, `INSERT INTO product_stocks (product_id, sku) VALUES ($1, 'MUG-RED'), ($1, 'MUG-BLUE')`, productID)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `INSERT INTO order_details (order_id, product_id, quantity, price) VALUES ($1, $2, 2, 499.50), ($1, NULL, 1, 0)`, orderID, productID)
	require.NoError(t, err)
	require.NoError(t, st.db.QueryRow(ctx, `INSERT INTO pickup_addresses (merchant_id, address_nickname) VALUES (1, 'Primary') RETURNING id`).Scan(&pickupID))
	require.NoError(t, st.db.QueryRow(ctx, `INSERT INTO shipping_box_sizes (length, breadth, height) VALUES (10, 12.5, 8) RETURNING id`).Scan(&boxID))

	o, err := st.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, int64(1), o.MerchantID)
	require.NotNil(t, o.Owner)
	require.Equal(t, "Asha", o.Owner.Name)
	require.True(t, decimal.RequireFromString("499.50").Equal(o.GrandTotal))
	require.Len(t, o.Lines, 2)
	require.Equal(t, "MUG-RED", o.Lines[0].Product.SKU)
	require.True(t, o.Lines[0].Product.Weight.Valid)
	require.Nil(t, o.Lines[1].Product)

	_, err = st.GetOrder(ctx, 999999)
	require.ErrorIs(t, err, models.ErrNotFound)

	pa, err := st.GetPickupAddress(ctx, pickupID)
	require.NoError(t, err)
	require.Equal(t, "Primary", pa.Nickname)

	bs, err := st.GetBoxSize(ctx, boxID)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("12.5").Equal(bs.Breadth))

	// not yet a shiprocket order
	list, err := st.ListReconcilableOrders(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	method := models.ShippingMethodShiprocket
	extOrder, extShipment := int64(7001), int64(8001)
	code := 1
	status := "new"
	confirmed := models.DeliveryConfirmed
	require.NoError(t, st.ApplyShipmentUpdate(ctx, models.ShipmentUpdate{
		OrderID:            orderID,
		ShippingMethod:     &method,
		PickupAddressID:    &pickupID,
		ExternalOrderID:    &extOrder,
		ExternalShipmentID: &extShipment,
		ExternalStatusCode: &code,
		ExternalStatus:     &status,
		DeliveryStatus:     &confirmed,
	}))

	list, err = st.ListReconcilableOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, extOrder, *list[0].Shipment.ExternalOrderID)
	require.Equal(t, 1, list[0].Shipment.ExternalStatusCode)

	delivered := models.DeliveryDelivered
	pickupAt := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	token := "194"
	require.NoError(t, st.ApplyShipmentUpdate(ctx, models.ShipmentUpdate{
		OrderID:           orderID,
		DeliveryStatus:    &delivered,
		PickupScheduledAt: &pickupAt,
		PickupToken:       &token,
	}))

	list, err = st.ListReconcilableOrders(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	o, err = st.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, "new", *o.Shipment.ExternalStatus)
	require.WithinDuration(t, pickupAt, *o.Shipment.PickupScheduledAt, time.Second)

	require.NoError(t, st.ApplyShipmentUpdate(ctx, models.ShipmentUpdate{OrderID: orderID}))
	require.ErrorIs(t, st.ApplyShipmentUpdate(ctx, models.ShipmentUpdate{OrderID: 999999, PickupToken: &token}), models.ErrNotFound)
}
