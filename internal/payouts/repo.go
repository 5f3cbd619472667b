package payouts

import (
	"context"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists seller payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Exists(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error)
	Create(ctx context.Context, payout *models.Payout) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status *enums.PayoutStatus) ([]models.Payout, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payout repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Exists(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("order_id = ? AND seller_id = ?", orderID, sellerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

// ListBySeller returns the seller's payouts newest first, optionally filtered by status.
func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, status *enums.PayoutStatus) ([]models.Payout, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.Payout
	if err := query.Order("date DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error) {
	var rows []models.Payout
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("seller_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
