// Package catalog reads the product and seller data owned by the catalog subsystem.
package catalog

import (
	"context"

	"github.com/angelmondragon/soundmarket-backend/pkg/db"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store exposes the catalog read model used by the checkout pipeline.
type Store interface {
	WithTx(tx *gorm.DB) Store
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	LiveProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	LockUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	Sellers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog store bound to the provided DB.
func NewRepository(db *gorm.DB) Store {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LiveProducts returns the non-deleted products among ids, keyed by id. Missing and deleted
// products are simply absent from the map.
func (r *repository) LiveProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	result := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("is_deleted = ?", false).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	return result, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LockUser loads the user row with FOR UPDATE. Callers must be inside a transaction.
func (r *repository) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) Sellers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	result := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	return result, nil
}
