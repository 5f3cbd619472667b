// Package dbtest opens isolated in-memory sqlite databases carrying the marketplace schema.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		stripe_account_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		price TEXT NOT NULL,
		file_url TEXT NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE cart_entries (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (buyer_id, product_id)
	)`,
	`CREATE TABLE coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		discount_percent TEXT NOT NULL,
		product_id TEXT NOT NULL,
		valid_until DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		total_price TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT 'stripe',
		external_payment_reference TEXT UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME,
		updated_at DATETIME,
		paid_at DATETIME,
		cancelled_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		title TEXT NOT NULL,
		price TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME
	)`,
	`CREATE TABLE payouts (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		platform_fee TEXT NOT NULL,
		gross_amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		stripe_event_id TEXT,
		date DATETIME NOT NULL,
		created_at DATETIME,
		UNIQUE (order_id, seller_id)
	)`,
	`CREATE TABLE download_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		order_item_id TEXT NOT NULL,
		download_time DATETIME NOT NULL
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// SeedUser inserts a user. A non-empty stripeAccount makes a seller payable.
func SeedUser(t *testing.T, db *gorm.DB, role enums.Role, stripeAccount string) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:    id,
		Email: id.String() + "@soundmarket.test",
		Name:  string(role) + "-" + id.String()[:8],
		Role:  role,
	}
	if stripeAccount != "" {
		user.StripeAccountID = &stripeAccount
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedProduct inserts a live product priced at price.
func SeedProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, title, price string) models.Product {
	t.Helper()
	product := models.Product{
		SellerID: sellerID,
		Title:    title,
		Price:    decimal.RequireFromString(price),
		FileURL:  "https://files.soundmarket.test/" + uuid.NewString() + ".mp3",
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// SeedCartEntry puts productID in the buyer's cart.
func SeedCartEntry(t *testing.T, db *gorm.DB, buyerID, productID uuid.UUID) models.CartEntry {
	t.Helper()
	entry := models.CartEntry{BuyerID: buyerID, ProductID: productID}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("seed cart entry: %v", err)
	}
	return entry
}

// SeedCoupon inserts a coupon for productID valid until validUntil.
func SeedCoupon(t *testing.T, db *gorm.DB, productID uuid.UUID, code string, percent int64, validUntil time.Time) models.Coupon {
	t.Helper()
	coupon := models.Coupon{
		Code:            code,
		DiscountPercent: decimal.NewFromInt(percent),
		ProductID:       productID,
		ValidUntil:      validUntil.UTC(),
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return coupon
}

// SeedOrder inserts an order with one item per product, priced at the product's price.
func SeedOrder(t *testing.T, db *gorm.DB, buyerID uuid.UUID, status enums.OrderStatus, reference string, products ...models.Product) models.Order {
	t.Helper()
	order := models.Order{
		BuyerID:       buyerID,
		PaymentMethod: enums.PaymentMethodStripe,
		Status:        status,
		TotalPrice:    decimal.Zero,
	}
	if reference != "" {
		order.ExternalPaymentReference = &reference
	}
	for _, product := range products {
		order.TotalPrice = order.TotalPrice.Add(product.Price)
		order.Items = append(order.Items, models.OrderItem{
			ProductID: product.ID,
			SellerID:  product.SellerID,
			Title:     product.Title,
			Price:     product.Price,
			Quantity:  1,
		})
	}
	if status == enums.OrderStatusPaid {
		paidAt := time.Now().UTC()
		order.PaidAt = &paidAt
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

// CountOutbox returns how many outbox rows of eventType were written.
func CountOutbox(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return count
}
