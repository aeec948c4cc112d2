package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/chatpoints/chatpoints-backend/pkg/enums"
)

// OpenAwardConstraint is the partial unique index guaranteeing at most one
// non-reverted positive-delta transaction per (tenant, source message). It is
// created in the migrations; gorm tags cannot express partial indexes.
const OpenAwardConstraint = "uniq_points_transactions_open_award"

// PointsTransaction is an immutable ledger record. Rows are append-only; the
// only permitted update is flipping Reverted on an award when it is undone.
type PointsTransaction struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID          string                  `gorm:"column:user_id;type:text;not null;index"`
	TenantID        string                  `gorm:"column:tenant_id;type:text;not null;index"`
	ChannelID       *string                 `gorm:"column:channel_id;type:text;index"`
	SourceMessageID *string                 `gorm:"column:source_message_id;type:text;index"`
	PointsDelta     int                     `gorm:"column:points_delta;not null"`
	Reason          enums.TransactionReason `gorm:"column:reason;type:text;not null"`
	Reverted        bool                    `gorm:"column:reverted;not null;default:false"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}
