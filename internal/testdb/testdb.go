// Package testdb opens throwaway sqlite databases carrying the storefront schema.
package testdb

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL,
		name TEXT NOT NULL,
		image_url TEXT,
		price TEXT NOT NULL,
		sale_price TEXT,
		on_sale BOOLEAN NOT NULL DEFAULT 0,
		sale_starts_at DATETIME,
		sale_ends_at DATETIME,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		reserved INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
		low_stock_threshold INTEGER NOT NULL DEFAULT 10,
		stock_status TEXT NOT NULL DEFAULT 'out-of-stock',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX idx_products_sku ON products (sku)`,
	`CREATE TABLE carts (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		session_id TEXT,
		subtotal TEXT NOT NULL DEFAULT '0',
		tax TEXT NOT NULL DEFAULT '0',
		shipping TEXT NOT NULL DEFAULT '0',
		discount TEXT NOT NULL DEFAULT '0',
		total TEXT NOT NULL DEFAULT '0',
		coupon TEXT,
		expires_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX idx_carts_user_id ON carts (user_id) WHERE user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX idx_carts_session_id ON carts (session_id) WHERE session_id IS NOT NULL`,
	`CREATE TABLE cart_items (
		id TEXT PRIMARY KEY,
		cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		description TEXT,
		discount_type TEXT NOT NULL,
		discount_value TEXT NOT NULL,
		minimum_purchase TEXT NOT NULL DEFAULT '0',
		maximum_discount TEXT,
		valid_from DATETIME NOT NULL,
		valid_until DATETIME NOT NULL,
		usage_limit INTEGER,
		used_count INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE cart_events (
		id TEXT PRIMARY KEY,
		cart_id TEXT NOT NULL,
		user_id TEXT,
		session_id TEXT,
		event_type TEXT NOT NULL,
		product_id TEXT,
		quantity INTEGER,
		price TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax TEXT NOT NULL,
		shipping TEXT NOT NULL,
		discount TEXT NOT NULL,
		total TEXT NOT NULL,
		coupon_code TEXT,
		shipping_address TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_date DATETIME,
		transaction_id TEXT,
		order_status TEXT NOT NULL,
		tracking_number TEXT,
		carrier TEXT,
		estimated_delivery DATETIME,
		delivered_at DATETIME,
		customer_note TEXT,
		cancel_reason TEXT,
		cancelled_at DATETIME,
		cancelled_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_line_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		image_url TEXT,
		unit_price TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		subtotal TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE order_status_history (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		note TEXT NOT NULL,
		actor_id TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		transaction_ref TEXT NOT NULL UNIQUE,
		order_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		gateway TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		gateway_ref TEXT UNIQUE,
		gateway_txn_no TEXT,
		gateway_created_at DATETIME,
		bank_code TEXT,
		card_type TEXT,
		order_info TEXT,
		pay_date TEXT,
		response_code TEXT,
		secure_hash TEXT,
		ip_address TEXT,
		user_agent TEXT,
		initiated_at DATETIME NOT NULL,
		completed_at DATETIME,
		error_code TEXT,
		error_message TEXT,
		refund_amount TEXT,
		refund_reason TEXT,
		refunded_at DATETIME,
		refunded_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE wishlist_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX idx_wishlist_items_user_product ON wishlist_items (user_id, product_id)`,
	`CREATE TABLE addresses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		label TEXT,
		full_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		street TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT,
		postal_code TEXT NOT NULL,
		country TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX idx_addresses_user_default ON addresses (user_id) WHERE is_default`,
}

// Open returns an isolated in-memory database with every storefront table.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
