package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
)

// Order is one seller partition of a checkout, settled by a single payment session.
type Order struct {
	ID                       uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID                  uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	TotalPrice               decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	PaymentMethod            enums.PaymentMethod `gorm:"column:payment_method;not null;default:'stripe'"`
	ExternalPaymentReference *string             `gorm:"column:external_payment_reference"`
	Status                   enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Items                    []OrderItem         `gorm:"foreignKey:OrderID"`
	CreatedAt                time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	PaidAt                   *time.Time          `gorm:"column:paid_at"`
	CancelledAt              *time.Time          `gorm:"column:cancelled_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ProductIDs returns the product ids of the loaded items in order.
func (o Order) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
