package orders

import (
	"time"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemView is a purchased line as shown to buyers and sellers.
type OrderItemView struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// OrderView is the API representation of an order.
type OrderView struct {
	ID               uuid.UUID         `json:"id"`
	BuyerID          uuid.UUID         `json:"buyer_id"`
	Status           enums.OrderStatus `json:"status"`
	TotalPrice       decimal.Decimal   `json:"total_price"`
	PaymentMethod    string            `json:"payment_method"`
	PaymentReference *string           `json:"payment_reference,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	Items            []OrderItemView   `json:"items"`
}

// RetryResult carries the fresh hosted checkout for a retried order.
type RetryResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	CheckoutURL string    `json:"checkout_url"`
}

// ProductSales aggregates a seller's paid sales of one product.
type ProductSales struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Title          string          `json:"title"`
	TotalUnitsSold int             `json:"total_units_sold"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
}

// ToView maps an order model onto its API shape.
func ToView(order models.Order) OrderView {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return OrderView{
		ID:               order.ID,
		BuyerID:          order.BuyerID,
		Status:           order.Status,
		TotalPrice:       order.TotalPrice,
		PaymentMethod:    string(order.PaymentMethod),
		PaymentReference: order.ExternalPaymentReference,
		CreatedAt:        order.CreatedAt,
		PaidAt:           order.PaidAt,
		CancelledAt:      order.CancelledAt,
		Items:            items,
	}
}

func toViews(rows []models.Order) []OrderView {
	views := make([]OrderView, 0, len(rows))
	for _, row := range rows {
		views = append(views, ToView(row))
	}
	return views
}
