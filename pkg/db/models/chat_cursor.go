package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatCursor stores the last fully-processed message ID for one polled
// channel. One row per (tenant, channel); advanced via idempotent upsert.
type ChatCursor struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID        string    `gorm:"column:tenant_id;type:text;not null;uniqueIndex:uniq_chat_cursors_tenant_channel"`
	ChannelID       string    `gorm:"column:channel_id;type:text;not null;uniqueIndex:uniq_chat_cursors_tenant_channel"`
	LastMessageID   string    `gorm:"column:last_message_id;type:text;not null"`
	LastProcessedAt time.Time `gorm:"column:last_processed_at;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
