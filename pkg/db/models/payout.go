package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
)

// Payout records what a seller earned from one settled order.
type Payout struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	OrderID       uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	PlatformFee   decimal.Decimal    `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	GrossAmount   decimal.Decimal    `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	Status        enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	StripeEventID *string            `gorm:"column:stripe_event_id"`
	Date          time.Time          `gorm:"column:date;not null"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (p *Payout) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
