package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartEntry is one product in a buyer's cart. Price is looked up live at checkout.
type CartEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (CartEntry) TableName() string {
	return "cart_entries"
}

func (c *CartEntry) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
