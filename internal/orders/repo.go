package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/soundmarket-backend/pkg/db"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	"github.com/angelmondragon/soundmarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockByReference(ctx context.Context, reference string) (*models.Order, error)
	HasPending(ctx context.Context, buyerID uuid.UUID) (bool, error)
	LockPendingByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ListPaidBySeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ListPaidItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.OrderItem, error)
	LockPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Preload("Items", orderItems).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Preload("Items", orderItems).
		Where("external_payment_reference = ?", reference).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) HasPending(ctx context.Context, buyerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("buyer_id = ? AND status = ?", buyerID, enums.OrderStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) LockPendingByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Preload("Items", orderItems).
		Where("buyer_id = ? AND status = ?", buyerID, enums.OrderStatusPending).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListByBuyer pages the buyer's orders newest first. It fetches one row past limit so the
// caller can tell whether another page exists.
func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("buyer_id = ?", buyerID)
	query = applyCursor(query, "orders", cursor)

	var orders []models.Order
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPaidBySeller pages paid orders holding at least one of the seller's items. Only the
// seller's own items are loaded.
func (r *repository) ListPaidBySeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return orderItems(tx).Where("seller_id = ?", sellerID)
		}).
		Where("status = ?", enums.OrderStatusPaid).
		Where("id IN (?)", r.db.Model(&models.OrderItem{}).Select("order_id").Where("seller_id = ?", sellerID))
	query = applyCursor(query, "orders", cursor)

	var orders []models.Order
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListPaidItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.seller_id = ?", sellerID).
		Where("orders.status = ?", enums.OrderStatusPaid).
		Order("order_items.created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// LockPendingBefore returns up to limit pending orders created before cutoff, skipping rows
// another worker already holds.
func (r *repository) LockPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := db.ForUpdateSkipLocked(r.db.WithContext(ctx)).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func orderItems(tx *gorm.DB) *gorm.DB {
	return tx.Order("created_at ASC").Order("id ASC")
}

func applyCursor(query *gorm.DB, table string, cursor *pagination.Cursor) *gorm.DB {
	if cursor == nil {
		return query
	}
	return query.Where(
		"("+table+".created_at < ?) OR ("+table+".created_at = ? AND "+table+".id < ?)",
		cursor.CreatedAt.UTC(), cursor.CreatedAt.UTC(), cursor.ID,
	)
}
