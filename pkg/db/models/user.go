package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
)

// User is the marketplace account read model. Sellers carry a Stripe connected account.
type User struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name            string     `gorm:"column:name;not null"`
	Role            enums.Role `gorm:"column:role;type:user_role;not null"`
	StripeAccountID *string    `gorm:"column:stripe_account_id"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasPayoutDestination reports whether the seller can receive destination transfers.
func (u User) HasPayoutDestination() bool {
	return u.StripeAccountID != nil && *u.StripeAccountID != ""
}
