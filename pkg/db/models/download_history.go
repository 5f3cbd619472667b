package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DownloadHistory is one recorded file download of a purchased item.
type DownloadHistory struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	OrderItemID  uuid.UUID `gorm:"column:order_item_id;type:uuid;not null"`
	DownloadTime time.Time `gorm:"column:download_time;not null"`
}

func (DownloadHistory) TableName() string {
	return "download_history"
}

func (d *DownloadHistory) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
