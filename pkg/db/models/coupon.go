package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon discounts a single product until ValidUntil (inclusive).
type Coupon struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string          `gorm:"column:code;not null;uniqueIndex"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ValidUntil      time.Time       `gorm:"column:valid_until;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ValidAt reports whether the coupon can still be redeemed at t.
func (c Coupon) ValidAt(t time.Time) bool {
	return !t.After(c.ValidUntil)
}
