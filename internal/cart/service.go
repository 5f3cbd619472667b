package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	"github.com/angelmondragon/soundmarket-backend/pkg/db"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type productLoader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	LiveProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type couponLister interface {
	ListValidForProducts(ctx context.Context, productIDs []uuid.UUID, now time.Time) (map[uuid.UUID][]models.Coupon, error)
}

// Service exposes the buyer cart.
type Service interface {
	Add(ctx context.Context, principal auth.Principal, productID uuid.UUID) error
	View(ctx context.Context, principal auth.Principal) ([]Item, error)
	Remove(ctx context.Context, principal auth.Principal, productID uuid.UUID) error
	Count(ctx context.Context, principal auth.Principal) (int64, error)
}

// Item is a cart line joined with live product data.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"added_at"`
	Coupons   []CouponView    `json:"coupons"`
}

// CouponView is a redeemable coupon shown next to a cart line.
type CouponView struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ValidUntil      time.Time       `json:"valid_until"`
}

type service struct {
	repo     Repository
	products productLoader
	coupons  couponLister
	now      func() time.Time
}

// NewService wires the cart service.
func NewService(repo Repository, products productLoader, coupons couponLister) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon lister required")
	}
	return &service{
		repo:     repo,
		products: products,
		coupons:  coupons,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Add(ctx context.Context, principal auth.Principal, productID uuid.UUID) error {
	if err := auth.Require(principal, auth.CapManageCart); err != nil {
		return err
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	product, err := s.products.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found or has been removed")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if product.IsDeleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found or has been removed")
	}

	exists, err := s.repo.Contains(ctx, principal.UserID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cart")
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "product already in cart")
	}
	if err := s.repo.Add(ctx, &models.CartEntry{BuyerID: principal.UserID, ProductID: productID}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "product already in cart")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart entry")
	}
	return nil
}

// View lists the cart with live prices. Entries whose product was deleted are hidden.
func (s *service) View(ctx context.Context, principal auth.Principal) ([]Item, error) {
	if err := auth.Require(principal, auth.CapManageCart); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ProductID)
	}
	products, err := s.products.LiveProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	coupons, err := s.coupons.ListValidForProducts(ctx, ids, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupons")
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		product, ok := products[entry.ProductID]
		if !ok {
			continue
		}
		views := make([]CouponView, 0, len(coupons[product.ID]))
		for _, coupon := range coupons[product.ID] {
			views = append(views, CouponView{
				Code:            coupon.Code,
				DiscountPercent: coupon.DiscountPercent,
				ValidUntil:      coupon.ValidUntil,
			})
		}
		items = append(items, Item{
			ProductID: product.ID,
			SellerID:  product.SellerID,
			Title:     product.Title,
			Price:     product.Price,
			AddedAt:   entry.CreatedAt,
			Coupons:   views,
		})
	}
	return items, nil
}

func (s *service) Remove(ctx context.Context, principal auth.Principal, productID uuid.UUID) error {
	if err := auth.Require(principal, auth.CapManageCart); err != nil {
		return err
	}
	removed, err := s.repo.Remove(ctx, principal.UserID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart entry")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
	}
	return nil
}

func (s *service) Count(ctx context.Context, principal auth.Principal) (int64, error) {
	if err := auth.Require(principal, auth.CapManageCart); err != nil {
		return 0, err
	}
	count, err := s.repo.Count(ctx, principal.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart")
	}
	return count, nil
}
