package coupons

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
)

// View is the API representation of a coupon.
type View struct {
	ID              uuid.UUID       `json:"id"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ProductID       uuid.UUID       `json:"product_id"`
	ValidUntil      time.Time       `json:"valid_until"`
	CreatedAt       time.Time       `json:"created_at"`
}

func ToView(coupon models.Coupon) View {
	return View{
		ID:              coupon.ID,
		Code:            coupon.Code,
		DiscountPercent: coupon.DiscountPercent,
		ProductID:       coupon.ProductID,
		ValidUntil:      coupon.ValidUntil,
		CreatedAt:       coupon.CreatedAt,
	}
}

func ToViews(rows []models.Coupon) []View {
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, ToView(row))
	}
	return views
}
