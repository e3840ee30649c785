package pgshipping

import (
	"context"

	"github.com/pkg/errors"
)

// initSchema owns shiprocket_credentials and the shipment columns on orders.
// The host tables are created only when missing so that a fresh database is
// usable; an existing shop schema is left alone apart from the added columns.
func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS shiprocket_credentials (
  merchant_id BIGINT PRIMARY KEY,
  email TEXT NOT NULL,
  secret TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_shiprocket_credentials_email ON shiprocket_credentials(lower(email))`,

		`
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NULL,
  phone TEXT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS orders (
  id BIGSERIAL PRIMARY KEY,
  merchant_id BIGINT NOT NULL,
  user_id BIGINT NULL,
  shipping_address TEXT NULL,
  billing_address TEXT NULL,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  delivery_status TEXT NOT NULL DEFAULT 'pending',
  grand_total NUMERIC(20,2) NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS products (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NULL,
  weight NUMERIC(12,3) NULL,
  hsn_code TEXT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS product_stocks (
  id BIGSERIAL PRIMARY KEY,
  product_id BIGINT NOT NULL,
  sku TEXT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS order_details (
  id BIGSERIAL PRIMARY KEY,
  order_id BIGINT NOT NULL,
  product_id BIGINT NULL,
  quantity INT NOT NULL DEFAULT 1,
  price NUMERIC(20,2) NOT NULL DEFAULT 0
)`,
		`
CREATE TABLE IF NOT EXISTS pickup_addresses (
  id BIGSERIAL PRIMARY KEY,
  merchant_id BIGINT NOT NULL,
  address_nickname TEXT NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS shipping_box_sizes (
  id BIGSERIAL PRIMARY KEY,
  length NUMERIC(10,2) NOT NULL,
  breadth NUMERIC(10,2) NOT NULL,
  height NUMERIC(10,2) NOT NULL
)`,

		// Shipment fields grafted onto the host orders table.
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shipping_method TEXT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS pickup_address_id BIGINT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_order_id BIGINT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_shipment_id BIGINT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_status_code INT NOT NULL DEFAULT 0`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_status TEXT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_awb TEXT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_courier_id BIGINT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_courier_name TEXT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS awb_assigned_at TIMESTAMPTZ NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_label_url TEXT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shiprocket_manifest_url TEXT NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS pickup_scheduled_at TIMESTAMPTZ NULL`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS pickup_token TEXT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_orders_shiprocket_reconcile ON orders(shipping_method, delivery_status) WHERE shiprocket_order_id IS NOT NULL`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
