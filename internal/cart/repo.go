package cart

import (
	"context"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists buyer cart entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Add(ctx context.Context, entry *models.CartEntry) error
	Contains(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
	ListEntries(ctx context.Context, buyerID uuid.UUID) ([]models.CartEntry, error)
	Remove(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
	RemoveProducts(ctx context.Context, buyerID uuid.UUID, productIDs []uuid.UUID) (int64, error)
	Count(ctx context.Context, buyerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Add(ctx context.Context, entry *models.CartEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Contains(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CartEntry{}).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListEntries returns the buyer's cart in insertion order.
func (r *repository) ListEntries(ctx context.Context, buyerID uuid.UUID) ([]models.CartEntry, error) {
	var entries []models.CartEntry
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Remove(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Delete(&models.CartEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveProducts deletes only the listed products from the buyer's cart.
func (r *repository) RemoveProducts(ctx context.Context, buyerID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id IN ?", buyerID, productIDs).
		Delete(&models.CartEntry{})
	return res.RowsAffected, res.Error
}

func (r *repository) Count(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CartEntry{}).
		Where("buyer_id = ?", buyerID).
		Count(&count).Error
	return count, err
}
