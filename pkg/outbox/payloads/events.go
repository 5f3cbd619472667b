package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted once per seller partition opened at checkout.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	BuyerID    uuid.UUID       `json:"buyer_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	SessionID  string          `json:"session_id"`
	ProductIDs []uuid.UUID     `json:"product_ids"`
}

// OrderPaidEvent is emitted when the provider confirms the session.
type OrderPaidEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	SessionID     string          `json:"session_id"`
	StripeEventID string          `json:"stripe_event_id"`
	PaidAt        time.Time       `json:"paid_at"`
}

// OrderCanceledEvent is emitted whenever a buyer cancels a pending order.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	CanceledAt time.Time `json:"canceled_at"`
	Reason     string    `json:"reason,omitempty"`
}

// OrderRetriedEvent reports that a pending order received a fresh payment session.
type OrderRetriedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	BuyerID           uuid.UUID `json:"buyer_id"`
	PreviousSessionID string    `json:"previous_session_id,omitempty"`
	SessionID         string    `json:"session_id"`
}

// OrderExpiredEvent is emitted when an abandoned pending order is failed by the cron worker.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

// PaymentOrphanedEvent flags a completed payment whose order was no longer pending. The money
// was captured, so it needs a manual refund.
type PaymentOrphanedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	OrderStatus   string    `json:"order_status"`
	SessionID     string    `json:"session_id"`
	StripeEventID string    `json:"stripe_event_id"`
}

// PayoutRecordedEvent is emitted for each seller payout written at confirmation.
type PayoutRecordedEvent struct {
	PayoutID    uuid.UUID       `json:"payout_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	Amount      decimal.Decimal `json:"amount"`
}
