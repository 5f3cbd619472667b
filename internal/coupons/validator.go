package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Validator resolves a coupon code for one product. Every call re-reads the coupon so expiry
// and edits take effect immediately.
type Validator struct {
	repo Repository
}

// NewValidator builds a validator over the coupon repository.
func NewValidator(repo Repository) (*Validator, error) {
	if repo == nil {
		return nil, errors.New("coupon repository required")
	}
	return &Validator{repo: repo}, nil
}

// WithTx returns a validator reading through tx.
func (v *Validator) WithTx(tx *gorm.DB) *Validator {
	return &Validator{repo: v.repo.WithTx(tx)}
}

// Validate returns the discount percent of code for productID at now.
func (v *Validator) Validate(ctx context.Context, productID uuid.UUID, code string, now time.Time) (decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	coupon, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if coupon.ProductID != productID {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found for product")
	}
	if !coupon.ValidAt(now) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon expired")
	}
	return coupon.DiscountPercent, nil
}
