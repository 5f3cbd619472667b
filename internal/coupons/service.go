package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	"github.com/angelmondragon/soundmarket-backend/pkg/db"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DateLayout is the accepted valid_until format. The coupon stays valid through the end of
// that UTC day.
const DateLayout = "2006-01-02"

var (
	minPercent = decimal.NewFromInt(1)
	maxPercent = decimal.NewFromInt(100)
)

type productLoader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type cartLookup interface {
	Contains(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
}

// Service covers seller coupon management and the buyer-facing coupon lookups.
type Service interface {
	Create(ctx context.Context, principal auth.Principal, input CreateInput) (*models.Coupon, error)
	List(ctx context.Context, principal auth.Principal, productID *uuid.UUID) ([]models.Coupon, error)
	Get(ctx context.Context, principal auth.Principal, couponID uuid.UUID) (*models.Coupon, error)
	Update(ctx context.Context, principal auth.Principal, couponID uuid.UUID, input UpdateInput) (*models.Coupon, error)
	Delete(ctx context.Context, principal auth.Principal, couponID uuid.UUID) error
	ListForCartProduct(ctx context.Context, principal auth.Principal, productID uuid.UUID) ([]models.Coupon, error)
	Apply(ctx context.Context, principal auth.Principal, input ApplyInput) (*ApplyResult, error)
}

// CreateInput carries a new coupon definition.
type CreateInput struct {
	Code            string
	DiscountPercent decimal.Decimal
	ProductID       uuid.UUID
	ValidUntil      string
}

// UpdateInput carries optional coupon changes.
type UpdateInput struct {
	Code            *string
	DiscountPercent *decimal.Decimal
	ValidUntil      *string
}

// ApplyInput previews a coupon against a product in the buyer's cart.
type ApplyInput struct {
	ProductID uuid.UUID
	Code      string
}

// ApplyResult is the discount preview returned to the buyer.
type ApplyResult struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

type service struct {
	repo      Repository
	products  productLoader
	cart      cartLookup
	validator *Validator
	now       func() time.Time
}

// NewService wires coupon management.
func NewService(repo Repository, products productLoader, cart cartLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart lookup required")
	}
	validator, err := NewValidator(repo)
	if err != nil {
		return nil, err
	}
	return &service{
		repo:      repo,
		products:  products,
		cart:      cart,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, principal auth.Principal, input CreateInput) (*models.Coupon, error) {
	if err := auth.Require(principal, auth.CapManageCoupons); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.Code)
	if code == "" || input.ProductID == uuid.Nil || strings.TrimSpace(input.ValidUntil) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code, discount_percent, product_id and valid_until are required")
	}
	if err := validatePercent(input.DiscountPercent); err != nil {
		return nil, err
	}
	validUntil, err := ParseValidUntil(input.ValidUntil)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProduct(ctx, principal, input.ProductID); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, code, uuid.Nil); err != nil {
		return nil, err
	}

	coupon := &models.Coupon{
		Code:            code,
		DiscountPercent: input.DiscountPercent,
		ProductID:       input.ProductID,
		ValidUntil:      validUntil,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context, principal auth.Principal, productID *uuid.UUID) ([]models.Coupon, error) {
	if err := auth.Require(principal, auth.CapManageCoupons); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListBySeller(ctx, principal.UserID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, principal auth.Principal, couponID uuid.UUID) (*models.Coupon, error) {
	if err := auth.Require(principal, auth.CapManageCoupons); err != nil {
		return nil, err
	}
	return s.ownedCoupon(ctx, principal, couponID)
}

func (s *service) Update(ctx context.Context, principal auth.Principal, couponID uuid.UUID, input UpdateInput) (*models.Coupon, error) {
	if err := auth.Require(principal, auth.CapManageCoupons); err != nil {
		return nil, err
	}
	coupon, err := s.ownedCoupon(ctx, principal, couponID)
	if err != nil {
		return nil, err
	}

	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "code cannot be empty")
		}
		if err := s.ensureCodeFree(ctx, code, coupon.ID); err != nil {
			return nil, err
		}
		coupon.Code = code
	}
	if input.DiscountPercent != nil {
		if err := validatePercent(*input.DiscountPercent); err != nil {
			return nil, err
		}
		coupon.DiscountPercent = *input.DiscountPercent
	}
	if input.ValidUntil != nil {
		validUntil, err := ParseValidUntil(*input.ValidUntil)
		if err != nil {
			return nil, err
		}
		coupon.ValidUntil = validUntil
	}

	if err := s.repo.Update(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update coupon")
	}
	return coupon, nil
}

func (s *service) Delete(ctx context.Context, principal auth.Principal, couponID uuid.UUID) error {
	if err := auth.Require(principal, auth.CapManageCoupons); err != nil {
		return err
	}
	coupon, err := s.ownedCoupon(ctx, principal, couponID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, coupon.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete coupon")
	}
	return nil
}

func (s *service) ListForCartProduct(ctx context.Context, principal auth.Principal, productID uuid.UUID) ([]models.Coupon, error) {
	if err := auth.Require(principal, auth.CapManageCart); err != nil {
		return nil, err
	}
	if err := s.requireInCart(ctx, principal.UserID, productID); err != nil {
		return nil, err
	}
	byProduct, err := s.repo.ListValidForProducts(ctx, []uuid.UUID{productID}, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	rows := byProduct[productID]
	if rows == nil {
		rows = []models.Coupon{}
	}
	return rows, nil
}

func (s *service) Apply(ctx context.Context, principal auth.Principal, input ApplyInput) (*ApplyResult, error) {
	if err := auth.Require(principal, auth.CapManageCart); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil || strings.TrimSpace(input.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id and coupon_code are required")
	}
	if err := s.requireInCart(ctx, principal.UserID, input.ProductID); err != nil {
		return nil, err
	}
	product, err := s.products.FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if product.IsDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	percent, err := s.validator.Validate(ctx, product.ID, input.Code, s.now())
	if err != nil {
		return nil, err
	}
	return &ApplyResult{
		ProductID:       product.ID,
		Code:            strings.TrimSpace(input.Code),
		DiscountPercent: percent,
		OriginalPrice:   product.Price,
		DiscountedPrice: money.ApplyDiscount(product.Price, percent),
	}, nil
}

func (s *service) requireInCart(ctx context.Context, buyerID, productID uuid.UUID) error {
	ok, err := s.cart.Contains(ctx, buyerID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "product must be in cart before using a coupon")
	}
	return nil
}

func (s *service) ownedProduct(ctx context.Context, principal auth.Principal, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if principal.Role != enums.RoleAdmin && product.SellerID != principal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to seller")
	}
	return product, nil
}

func (s *service) ownedCoupon(ctx context.Context, principal auth.Principal, couponID uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if _, err := s.ownedProduct(ctx, principal, coupon.ProductID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, err
	}
	return coupon, nil
}

func (s *service) ensureCodeFree(ctx context.Context, code string, excludeID uuid.UUID) error {
	taken, err := s.repo.CodeTaken(ctx, code, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon code")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
	}
	return nil
}

func validatePercent(percent decimal.Decimal) error {
	if percent.LessThan(minPercent) || percent.GreaterThan(maxPercent) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_percent must be between 1 and 100")
	}
	return nil
}

// ParseValidUntil parses a YYYY-MM-DD date into the last second of that UTC day.
func ParseValidUntil(value string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "valid_until must use YYYY-MM-DD")
	}
	return day.Add(24*time.Hour - time.Second), nil
}
