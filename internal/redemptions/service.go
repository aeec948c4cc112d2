package redemptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
	"github.com/chatpoints/chatpoints-backend/pkg/enums"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
)

// Service handles the redemption request lifecycle: users submit a prize
// request against their balance, an operator approves or rejects it, and an
// approval debits the ledger.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.RedemptionRequest, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.RedemptionRequest, error)
	List(ctx context.Context, tenantID string, status enums.RedemptionStatus) ([]models.RedemptionRequest, error)
}

// SubmitInput captures a new redemption request.
type SubmitInput struct {
	UserID     string
	TenantID   string
	PrizeKey   string
	PrizeLabel string
	PointsCost int
}

// ResolveInput captures an operator decision on a pending request.
type ResolveInput struct {
	RequestID uuid.UUID
	Approve   bool
	Notes     string
}

type service struct {
	repo   Repository
	ledger ledger.Service
}

// NewService wires a redemptions service.
func NewService(repository Repository, ledgerSvc ledger.Service) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("redemptions repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{repo: repository, ledger: ledgerSvc}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.RedemptionRequest, error) {
	if input.UserID == "" || input.TenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and tenant id are required")
	}
	if input.PrizeKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prize key is required")
	}
	if input.PointsCost <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points cost must be positive")
	}

	balance, err := s.ledger.GetBalance(ctx, input.UserID, input.TenantID)
	if err != nil {
		return nil, err
	}
	if balance < input.PointsCost {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("insufficient balance: have %d, need %d", balance, input.PointsCost))
	}

	request := &models.RedemptionRequest{
		ID:          uuid.New(),
		UserID:      input.UserID,
		TenantID:    input.TenantID,
		PrizeKey:    input.PrizeKey,
		PrizeLabel:  input.PrizeLabel,
		PointsCost:  input.PointsCost,
		Status:      enums.RedemptionStatusPending,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// Resolve decides a pending request. The balance is only debited on
// approval, at resolution time; a balance that fell below the cost since
// submission still goes through and clamps at zero in the ledger.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.RedemptionRequest, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}

	request, err := s.repo.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "redemption request not found")
	}
	if request.Status != enums.RedemptionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("request already %s", request.Status))
	}

	if input.Approve {
		if _, err := s.ledger.Credit(ctx, ledger.CreditInput{
			UserID:   request.UserID,
			TenantID: request.TenantID,
			Delta:    -request.PointsCost,
			Reason:   enums.TransactionReasonRedemption,
		}); err != nil {
			return nil, err
		}
		request.Status = enums.RedemptionStatusApproved
	} else {
		request.Status = enums.RedemptionStatusRejected
	}

	now := time.Now().UTC()
	request.ProcessedAt = &now
	request.Notes = input.Notes
	if err := s.repo.Save(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) List(ctx context.Context, tenantID string, status enums.RedemptionStatus) ([]models.RedemptionRequest, error) {
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if status != "" && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	return s.repo.List(ctx, tenantID, status)
}
