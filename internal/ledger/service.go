package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatpoints/chatpoints-backend/pkg/chat"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
	"github.com/chatpoints/chatpoints-backend/pkg/enums"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the ledger operations the rest of the system consumes.
// Award is idempotent per (tenant, source message): the open-award unique
// index decides duplicates, not a pre-check, so concurrent ticks are safe.
type Service interface {
	Award(ctx context.Context, input AwardInput) (*AwardResult, error)
	Revert(ctx context.Context, transactionID uuid.UUID) (*RevertResult, error)
	FindOpenAwardsForChannel(ctx context.Context, tenantID, channelID string) ([]models.PointsTransaction, error)
	GetBalance(ctx context.Context, userID, tenantID string) (int, error)
	GetAccount(ctx context.Context, userID, tenantID string) (*models.Account, error)
	TopN(ctx context.Context, tenantID string, n int) ([]models.Account, error)
	Credit(ctx context.Context, input CreditInput) (*models.Account, error)
	SetPromoWindow(ctx context.Context, userID, tenantID string, start, end time.Time) (*models.Account, error)
}

// AwardInput identifies one eligible message to credit.
type AwardInput struct {
	UserID          string
	TenantID        string
	ChannelID       string
	SourceMessageID string
	Delta           int
}

// AwardResult reports the outcome of an award attempt. Created is false when
// the message was already credited; the balance is still current.
type AwardResult struct {
	Transaction *models.PointsTransaction
	NewBalance  int
	Created     bool
}

// RevertResult reports the outcome of undoing an award.
type RevertResult struct {
	Mirror     *models.PointsTransaction
	NewBalance int
}

// CreditInput captures a non-message-sourced balance adjustment. There is no
// idempotency key; callers deduplicate.
type CreditInput struct {
	UserID   string
	TenantID string
	Delta    int
	Reason   enums.TransactionReason
}

type service struct {
	repo      Repository
	tx        TxRunner
	directory chat.Directory
	log       *logger.Logger
}

// NewService wires a ledger service. The directory is optional; when present
// it supplies profile fields for lazily-created accounts.
func NewService(repository Repository, tx TxRunner, directory chat.Directory, log *logger.Logger) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repository, tx: tx, directory: directory, log: log}, nil
}

func (s *service) Award(ctx context.Context, input AwardInput) (*AwardResult, error) {
	if input.UserID == "" || input.TenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and tenant id are required")
	}
	if input.ChannelID == "" || input.SourceMessageID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel id and source message id are required")
	}
	if input.Delta <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "award delta must be positive")
	}

	// Profile lookup happens outside the transaction so a slow chat API
	// never holds a database transaction open. Only needed when the account
	// does not exist yet; failures are ignored and the award proceeds.
	var profile *chat.User
	if existing, err := s.repo.GetAccount(ctx, input.UserID, input.TenantID); err == nil && existing == nil {
		profile = s.lookupProfile(ctx, input.UserID)
	}

	result := &AwardResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)

		channelID := input.ChannelID
		messageID := input.SourceMessageID
		txn := &models.PointsTransaction{
			ID:              uuid.New(),
			UserID:          input.UserID,
			TenantID:        input.TenantID,
			ChannelID:       &channelID,
			SourceMessageID: &messageID,
			PointsDelta:     input.Delta,
			Reason:          enums.TransactionReasonImageAward,
		}
		// The insert-or-nothing keeps the transaction healthy on the
		// duplicate path; a raw unique violation would abort it on Postgres
		// and poison the balance read below.
		created, err := r.CreateAwardTransaction(ctx, txn)
		if err != nil {
			return err
		}
		if !created {
			account, getErr := r.GetAccount(ctx, input.UserID, input.TenantID)
			if getErr != nil {
				return getErr
			}
			if account != nil {
				result.NewBalance = account.Balance
			}
			result.Created = false
			return nil
		}

		account, err := s.ensureAccount(ctx, r, input.UserID, input.TenantID, profile)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		account.Balance += input.Delta
		account.LastAwardAt = &now
		if err := r.SaveAccount(ctx, account); err != nil {
			return err
		}

		result.Transaction = txn
		result.NewBalance = account.Balance
		result.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Revert(ctx context.Context, transactionID uuid.UUID) (*RevertResult, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	result := &RevertResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)

		original, err := r.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if original == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if original.PointsDelta <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "only positive-delta awards can be reverted")
		}

		// The flag flip is the sole gate: a crash after this statement but
		// before commit rolls everything back, and a concurrent revert of
		// the same award loses the update race and bails out here.
		flipped, err := r.MarkReverted(ctx, transactionID)
		if err != nil {
			return err
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already reverted")
		}

		mirror := &models.PointsTransaction{
			ID:              uuid.New(),
			UserID:          original.UserID,
			TenantID:        original.TenantID,
			ChannelID:       original.ChannelID,
			SourceMessageID: original.SourceMessageID,
			PointsDelta:     -original.PointsDelta,
			Reason:          enums.TransactionReasonDeletedRevert,
			Reverted:        true,
		}
		if err := r.CreateTransaction(ctx, mirror); err != nil {
			return err
		}

		account, err := r.GetAccount(ctx, original.UserID, original.TenantID)
		if err != nil {
			return err
		}
		if account != nil {
			account.Balance -= original.PointsDelta
			if account.Balance < 0 {
				account.Balance = 0
			}
			if err := r.SaveAccount(ctx, account); err != nil {
				return err
			}
			result.NewBalance = account.Balance
		}

		result.Mirror = mirror
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) FindOpenAwardsForChannel(ctx context.Context, tenantID, channelID string) ([]models.PointsTransaction, error) {
	if tenantID == "" || channelID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and channel id are required")
	}
	return s.repo.FindOpenAwards(ctx, tenantID, channelID)
}

func (s *service) GetBalance(ctx context.Context, userID, tenantID string) (int, error) {
	account, err := s.repo.GetAccount(ctx, userID, tenantID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Balance, nil
}

func (s *service) GetAccount(ctx context.Context, userID, tenantID string) (*models.Account, error) {
	account, err := s.repo.GetAccount(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return account, nil
}

func (s *service) TopN(ctx context.Context, tenantID string, n int) ([]models.Account, error) {
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if n <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "n must be positive")
	}
	return s.repo.TopAccounts(ctx, tenantID, n)
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*models.Account, error) {
	if input.UserID == "" || input.TenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and tenant id are required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit delta must be non-zero")
	}
	reason := input.Reason
	if reason == "" {
		reason = enums.TransactionReasonManualCredit
	}
	if !reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction reason %q", reason))
	}

	var profile *chat.User
	if existing, err := s.repo.GetAccount(ctx, input.UserID, input.TenantID); err == nil && existing == nil {
		profile = s.lookupProfile(ctx, input.UserID)
	}

	var updated *models.Account
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)

		account, err := s.ensureAccount(ctx, r, input.UserID, input.TenantID, profile)
		if err != nil {
			return err
		}

		txn := &models.PointsTransaction{
			ID:          uuid.New(),
			UserID:      input.UserID,
			TenantID:    input.TenantID,
			PointsDelta: input.Delta,
			Reason:      reason,
		}
		if err := r.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		account.Balance += input.Delta
		if account.Balance < 0 {
			account.Balance = 0
		}
		if err := r.SaveAccount(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) SetPromoWindow(ctx context.Context, userID, tenantID string, start, end time.Time) (*models.Account, error) {
	if userID == "" || tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and tenant id are required")
	}
	if !end.After(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo window end must be after start")
	}

	var profile *chat.User
	if existing, err := s.repo.GetAccount(ctx, userID, tenantID); err == nil && existing == nil {
		profile = s.lookupProfile(ctx, userID)
	}

	var updated *models.Account
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)

		account, err := s.ensureAccount(ctx, r, userID, tenantID, profile)
		if err != nil {
			return err
		}
		startUTC := start.UTC()
		endUTC := end.UTC()
		account.PromoStartAt = &startUTC
		account.PromoEndAt = &endUTC
		if err := r.SaveAccount(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ensureAccount loads or lazily creates the account inside the caller's
// transaction. A concurrent creation loses the unique-index race and falls
// back to re-reading the winner's row.
func (s *service) ensureAccount(ctx context.Context, r Repository, userID, tenantID string, profile *chat.User) (*models.Account, error) {
	account, err := r.GetAccount(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &models.Account{
		ID:       uuid.New(),
		UserID:   userID,
		TenantID: tenantID,
	}
	if profile != nil {
		account.Username = profile.Username
		account.DisplayName = profile.DisplayName
		account.AvatarURL = profile.AvatarURL
	}
	inserted, err := r.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return r.GetAccount(ctx, userID, tenantID)
	}
	return account, nil
}

func (s *service) lookupProfile(ctx context.Context, userID string) *chat.User {
	if s.directory == nil {
		return nil
	}
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		if s.log != nil {
			ctx = s.log.WithUserID(ctx, userID)
			s.log.Warn(ctx, "profile lookup failed, creating bare account")
		}
		return nil
	}
	return user
}
