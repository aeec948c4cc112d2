package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatpoints/chatpoints-backend/internal/repo"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
)

// Repository manages persistence for accounts and points transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransaction(ctx context.Context, txn *models.PointsTransaction) error
	CreateAwardTransaction(ctx context.Context, txn *models.PointsTransaction) (bool, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.PointsTransaction, error)
	MarkReverted(ctx context.Context, id uuid.UUID) (bool, error)
	FindOpenAwards(ctx context.Context, tenantID, channelID string) ([]models.PointsTransaction, error)
	GetAccount(ctx context.Context, userID, tenantID string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) (bool, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	TopAccounts(ctx context.Context, tenantID string, limit int) ([]models.Account, error)
}

// openAwardPredicate mirrors the WHERE clause of the open-award partial
// index so ON CONFLICT can target it.
const openAwardPredicate = "points_delta > 0 AND reverted = FALSE AND source_message_id IS NOT NULL"

type repository struct {
	base repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.PointsTransaction) error {
	return r.base.DB(ctx).Create(txn).Error
}

// CreateAwardTransaction inserts an award row unless the open-award index
// already holds one for its (tenant, source message). The duplicate comes
// back as (false, nil) rather than a unique-violation error, which on
// Postgres would abort the surrounding transaction before the balance read.
func (r *repository) CreateAwardTransaction(ctx context.Context, txn *models.PointsTransaction) (bool, error) {
	result := r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "tenant_id"}, {Name: "source_message_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: openAwardPredicate}}},
		DoNothing:   true,
	}).Create(txn)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) GetTransaction(ctx context.Context, id uuid.UUID) (*models.PointsTransaction, error) {
	var txn models.PointsTransaction
	if err := r.base.DB(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// MarkReverted flips the reverted flag on an open transaction. Returns false
// when the row was already reverted (or missing); the flag check and the flip
// are one statement so concurrent reverts cannot both win.
func (r *repository) MarkReverted(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.base.DB(ctx).
		Model(&models.PointsTransaction{}).
		Where("id = ? AND reverted = ?", id, false).
		Update("reverted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindOpenAwards(ctx context.Context, tenantID, channelID string) ([]models.PointsTransaction, error) {
	var txns []models.PointsTransaction
	if err := r.base.DB(ctx).
		Where("tenant_id = ? AND channel_id = ? AND points_delta > 0 AND reverted = ? AND source_message_id IS NOT NULL",
			tenantID, channelID, false).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) GetAccount(ctx context.Context, userID, tenantID string) (*models.Account, error) {
	var account models.Account
	if err := r.base.DB(ctx).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount inserts the account unless one already exists for the
// (user, tenant) pair; the loser of a concurrent create gets (false, nil)
// and re-reads the winner's row.
func (r *repository) CreateAccount(ctx context.Context, account *models.Account) (bool, error) {
	result := r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "tenant_id"}},
		DoNothing: true,
	}).Create(account)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SaveAccount(ctx context.Context, account *models.Account) error {
	return r.base.DB(ctx).Save(account).Error
}

func (r *repository) TopAccounts(ctx context.Context, tenantID string, limit int) ([]models.Account, error) {
	var accounts []models.Account
	if err := r.base.DB(ctx).
		Where("tenant_id = ?", tenantID).
		Order("balance DESC, created_at ASC").
		Limit(limit).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
