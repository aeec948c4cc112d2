package models

import (
	"time"

	"github.com/google/uuid"
)

// Account tracks one user's point balance inside a tenant. Created lazily on
// the first award or credit; the balance only moves through ledger operations.
type Account struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID       string     `gorm:"column:user_id;type:text;not null;uniqueIndex:uniq_accounts_user_tenant"`
	TenantID     string     `gorm:"column:tenant_id;type:text;not null;uniqueIndex:uniq_accounts_user_tenant"`
	Username     string     `gorm:"column:username;type:text;not null;default:''"`
	DisplayName  string     `gorm:"column:display_name;type:text;not null;default:''"`
	AvatarURL    string     `gorm:"column:avatar_url;type:text;not null;default:''"`
	Balance      int        `gorm:"column:balance;not null;default:0"`
	LastAwardAt  *time.Time `gorm:"column:last_award_at"`
	PromoStartAt *time.Time `gorm:"column:promo_start_at"`
	PromoEndAt   *time.Time `gorm:"column:promo_end_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
