package checkout

import (
	"context"
	"time"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Skip reasons reported for seller partitions that produced no order.
const (
	SkipNoPayoutDestination = "no_payout_destination"
	SkipGatewayError        = "gateway_error"
)

type couponValidator interface {
	Validate(ctx context.Context, productID uuid.UUID, code string, now time.Time) (decimal.Decimal, error)
}

// PricedItem is one cart product at its final checkout price.
type PricedItem struct {
	Product         models.Product
	Price           decimal.Decimal
	CouponCode      string
	DiscountPercent decimal.Decimal
}

// Partition groups the priced items of one seller.
type Partition struct {
	SellerID    uuid.UUID
	Destination string
	Items       []PricedItem
	Total       decimal.Decimal
}

// Skipped names a seller whose partition produced no order.
type Skipped struct {
	SellerID uuid.UUID `json:"seller_id"`
	Reason   string    `json:"reason"`
}

// SplitInput is the cart snapshot plus the live catalog rows it references.
type SplitInput struct {
	Entries  []models.CartEntry
	Products map[uuid.UUID]models.Product
	Sellers  map[uuid.UUID]models.User
	Coupons  map[uuid.UUID]string
	Now      time.Time
}

// SplitResult holds the payable partitions in order of each seller's first cart entry.
type SplitResult struct {
	Partitions []Partition
	Skipped    []Skipped
	// RejectedCoupons maps product id to the validation failure of its supplied code. Those
	// products are charged the catalog price.
	RejectedCoupons map[uuid.UUID]string
}

// Splitter partitions a cart by seller and prices every item.
type Splitter struct {
	coupons couponValidator
}

// NewSplitter builds a splitter that re-validates coupons through v.
func NewSplitter(v couponValidator) *Splitter {
	return &Splitter{coupons: v}
}

// Split drops deleted products, groups the rest by seller and applies coupons. An empty
// cart after filtering is a validation error.
func (s *Splitter) Split(ctx context.Context, in SplitInput) (*SplitResult, error) {
	groups := map[uuid.UUID]*Partition{}
	order := []uuid.UUID{}
	result := &SplitResult{RejectedCoupons: map[uuid.UUID]string{}}

	for _, entry := range in.Entries {
		product, ok := in.Products[entry.ProductID]
		if !ok || product.IsDeleted {
			continue
		}
		item, err := s.price(ctx, product, in.Coupons[product.ID], in.Now)
		if err != nil {
			if !isCouponRejection(err) {
				return nil, err
			}
			result.RejectedCoupons[product.ID] = pkgerrors.As(err).Message()
		}

		group, ok := groups[product.SellerID]
		if !ok {
			group = &Partition{SellerID: product.SellerID, Total: decimal.Zero}
			groups[product.SellerID] = group
			order = append(order, product.SellerID)
		}
		group.Items = append(group.Items, item)
		group.Total = group.Total.Add(item.Price)
	}

	if len(order) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	for _, sellerID := range order {
		seller, ok := in.Sellers[sellerID]
		if !ok || !seller.HasPayoutDestination() {
			result.Skipped = append(result.Skipped, Skipped{SellerID: sellerID, Reason: SkipNoPayoutDestination})
			continue
		}
		partition := groups[sellerID]
		partition.Destination = *seller.StripeAccountID
		partition.Total = money.Round2(partition.Total)
		result.Partitions = append(result.Partitions, *partition)
	}
	return result, nil
}

// price returns the item at its live price, discounted when code validates for the product.
// A rejected code still yields the undiscounted item alongside the error.
func (s *Splitter) price(ctx context.Context, product models.Product, code string, now time.Time) (PricedItem, error) {
	item := PricedItem{Product: product, Price: money.Round2(product.Price), DiscountPercent: decimal.Zero}
	if code == "" || s.coupons == nil {
		return item, nil
	}
	percent, err := s.coupons.Validate(ctx, product.ID, code, now)
	if err != nil {
		return item, err
	}
	item.CouponCode = code
	item.DiscountPercent = percent
	item.Price = money.ApplyDiscount(product.Price, percent)
	return item, nil
}

func isCouponRejection(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeValidation)
}
