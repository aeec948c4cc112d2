package cursor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatpoints/chatpoints-backend/internal/repo"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
)

// Store tracks the last fully-processed message per (tenant, channel).
// Set is an idempotent upsert; callers only advance after processing up
// through the given message ID.
type Store interface {
	Get(ctx context.Context, tenantID, channelID string) (string, bool, error)
	Set(ctx context.Context, tenantID, channelID, messageID string) error
	Delete(ctx context.Context, tenantID, channelID string) error
}

type store struct {
	base repo.Base
}

// NewStore returns a cursor store bound to the provided database.
func NewStore(db *gorm.DB) Store {
	return &store{base: repo.NewBase(db)}
}

func (s *store) Get(ctx context.Context, tenantID, channelID string) (string, bool, error) {
	if tenantID == "" || channelID == "" {
		return "", false, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and channel id are required")
	}

	var row models.ChatCursor
	if err := s.base.DB(ctx).
		Where("tenant_id = ? AND channel_id = ?", tenantID, channelID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return row.LastMessageID, true, nil
}

func (s *store) Set(ctx context.Context, tenantID, channelID, messageID string) error {
	if tenantID == "" || channelID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id and channel id are required")
	}
	if messageID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}

	now := time.Now().UTC()
	row := models.ChatCursor{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ChannelID:       channelID,
		LastMessageID:   messageID,
		LastProcessedAt: now,
	}
	return s.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "channel_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_message_id":   messageID,
				"last_processed_at": now,
				"updated_at":        now,
			}),
		}).
		Create(&row).Error
}

// Delete removes the cursor so the next poll re-seeds it, same as a
// first run.
func (s *store) Delete(ctx context.Context, tenantID, channelID string) error {
	if tenantID == "" || channelID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id and channel id are required")
	}
	return s.base.DB(ctx).
		Where("tenant_id = ? AND channel_id = ?", tenantID, channelID).
		Delete(&models.ChatCursor{}).Error
}
