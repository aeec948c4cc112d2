package redemptions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatpoints/chatpoints-backend/internal/repo"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
	"github.com/chatpoints/chatpoints-backend/pkg/enums"
)

// Repository manages persistence for redemption requests.
type Repository interface {
	Create(ctx context.Context, request *models.RedemptionRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RedemptionRequest, error)
	Save(ctx context.Context, request *models.RedemptionRequest) error
	List(ctx context.Context, tenantID string, status enums.RedemptionStatus) ([]models.RedemptionRequest, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a redemptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, request *models.RedemptionRequest) error {
	return r.base.DB(ctx).Create(request).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.RedemptionRequest, error) {
	var request models.RedemptionRequest
	if err := r.base.DB(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *repository) Save(ctx context.Context, request *models.RedemptionRequest) error {
	return r.base.DB(ctx).Save(request).Error
}

// List returns a tenant's requests newest-first, optionally filtered by
// status (empty status means all).
func (r *repository) List(ctx context.Context, tenantID string, status enums.RedemptionStatus) ([]models.RedemptionRequest, error) {
	query := r.base.DB(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.RedemptionRequest
	if err := query.Order("submitted_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}
