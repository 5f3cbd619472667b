package coupons

import (
	"context"
	"time"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, coupon *models.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	CodeTaken(ctx context.Context, code string, excludeID uuid.UUID) (bool, error)
	ListValidForProducts(ctx context.Context, productIDs []uuid.UUID, now time.Time) (map[uuid.UUID][]models.Coupon, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, productID *uuid.UUID) ([]models.Coupon, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupon repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", coupon.ID).
		Updates(map[string]any{
			"code":             coupon.Code,
			"discount_percent": coupon.DiscountPercent,
			"valid_until":      coupon.ValidUntil,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Coupon{}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) CodeTaken(ctx context.Context, code string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Coupon{}).Where("code = ?", code)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListValidForProducts groups the coupons still redeemable at now by product.
func (r *repository) ListValidForProducts(ctx context.Context, productIDs []uuid.UUID, now time.Time) (map[uuid.UUID][]models.Coupon, error) {
	result := make(map[uuid.UUID][]models.Coupon, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	var rows []models.Coupon
	err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Where("valid_until >= ?", now.UTC()).
		Order("valid_until ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ProductID] = append(result[row.ProductID], row)
	}
	return result, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, productID *uuid.UUID) ([]models.Coupon, error) {
	var rows []models.Coupon
	query := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Joins("JOIN products ON products.id = coupons.product_id").
		Where("products.seller_id = ?", sellerID)
	if productID != nil {
		query = query.Where("coupons.product_id = ?", *productID)
	}
	if err := query.Order("coupons.created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
