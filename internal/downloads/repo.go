package downloads

import (
	"context"

	"github.com/angelmondragon/soundmarket-backend/pkg/db"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads purchased items and records downloads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockPaidItem(ctx context.Context, buyerID, orderItemID uuid.UUID) (*models.OrderItem, error)
	ListPaidItems(ctx context.Context, buyerID uuid.UUID) ([]models.OrderItem, error)
	CountDownloads(ctx context.Context, userID, orderItemID uuid.UUID) (int64, error)
	History(ctx context.Context, userID uuid.UUID, orderItemIDs []uuid.UUID) ([]models.DownloadHistory, error)
	Record(ctx context.Context, entry *models.DownloadHistory) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockPaidItem returns the item only when it belongs to a paid order of buyerID. The item row
// is locked so concurrent downloads of it are counted one at a time.
func (r *repository) LockPaidItem(ctx context.Context, buyerID, orderItemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.id = ?", orderItemID).
		Where("orders.buyer_id = ? AND orders.status = ?", buyerID, enums.OrderStatusPaid).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListPaidItems(ctx context.Context, buyerID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.buyer_id = ? AND orders.status = ?", buyerID, enums.OrderStatusPaid).
		Order("orders.paid_at DESC").
		Order("order_items.id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) CountDownloads(ctx context.Context, userID, orderItemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DownloadHistory{}).
		Where("user_id = ? AND order_item_id = ?", userID, orderItemID).
		Count(&count).Error
	return count, err
}

func (r *repository) History(ctx context.Context, userID uuid.UUID, orderItemIDs []uuid.UUID) ([]models.DownloadHistory, error) {
	if len(orderItemIDs) == 0 {
		return nil, nil
	}
	var rows []models.DownloadHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND order_item_id IN ?", userID, orderItemIDs).
		Order("download_time ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Record(ctx context.Context, entry *models.DownloadHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
