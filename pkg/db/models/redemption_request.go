package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/chatpoints/chatpoints-backend/pkg/enums"
)

// RedemptionRequest records a user's attempt to spend points on a prize.
type RedemptionRequest struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID      string                 `gorm:"column:user_id;type:text;not null;index"`
	TenantID    string                 `gorm:"column:tenant_id;type:text;not null;index"`
	PrizeKey    string                 `gorm:"column:prize_key;type:text;not null"`
	PrizeLabel  string                 `gorm:"column:prize_label;type:text;not null"`
	PointsCost  int                    `gorm:"column:points_cost;not null"`
	Status      enums.RedemptionStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Notes       string                 `gorm:"column:notes;type:text;not null;default:''"`
	SubmittedAt time.Time              `gorm:"column:submitted_at;not null"`
	ProcessedAt *time.Time             `gorm:"column:processed_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
