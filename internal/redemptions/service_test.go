package redemptions

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
	"github.com/chatpoints/chatpoints-backend/pkg/enums"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
)

type memRepository struct {
	requests map[uuid.UUID]*models.RedemptionRequest
}

func newMemRepository() *memRepository {
	return &memRepository{requests: make(map[uuid.UUID]*models.RedemptionRequest)}
}

func (m *memRepository) Create(ctx context.Context, request *models.RedemptionRequest) error {
	copied := *request
	m.requests[request.ID] = &copied
	return nil
}

func (m *memRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RedemptionRequest, error) {
	request, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *request
	return &copied, nil
}

func (m *memRepository) Save(ctx context.Context, request *models.RedemptionRequest) error {
	copied := *request
	m.requests[request.ID] = &copied
	return nil
}

func (m *memRepository) List(ctx context.Context, tenantID string, status enums.RedemptionStatus) ([]models.RedemptionRequest, error) {
	var out []models.RedemptionRequest
	for _, request := range m.requests {
		if request.TenantID != tenantID {
			continue
		}
		if status != "" && request.Status != status {
			continue
		}
		out = append(out, *request)
	}
	return out, nil
}

type balanceLedger struct {
	ledger.Service
	balance int
	credits []ledger.CreditInput
}

func (l *balanceLedger) GetBalance(ctx context.Context, userID, tenantID string) (int, error) {
	return l.balance, nil
}

func (l *balanceLedger) Credit(ctx context.Context, input ledger.CreditInput) (*models.Account, error) {
	l.credits = append(l.credits, input)
	l.balance += input.Delta
	if l.balance < 0 {
		l.balance = 0
	}
	return &models.Account{Balance: l.balance}, nil
}

func newTestService(t *testing.T, repo Repository, led ledger.Service) Service {
	t.Helper()
	svc, err := NewService(repo, led)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func submitInput() SubmitInput {
	return SubmitInput{
		UserID:     "user_1",
		TenantID:   "tenant_1",
		PrizeKey:   "hoodie",
		PrizeLabel: "Team Hoodie",
		PointsCost: 5,
	}
}

func TestSubmit_CreatesPendingRequest(t *testing.T) {
	repo := newMemRepository()
	svc := newTestService(t, repo, &balanceLedger{balance: 10})

	request, err := svc.Submit(context.Background(), submitInput())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if request.Status != enums.RedemptionStatusPending {
		t.Fatalf("expected pending, got %s", request.Status)
	}
	if request.SubmittedAt.IsZero() {
		t.Fatal("expected submitted timestamp")
	}
	if len(repo.requests) != 1 {
		t.Fatalf("expected one stored request, got %d", len(repo.requests))
	}
}

func TestSubmit_RejectsInsufficientBalance(t *testing.T) {
	svc := newTestService(t, newMemRepository(), &balanceLedger{balance: 2})

	_, err := svc.Submit(context.Background(), submitInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc := newTestService(t, newMemRepository(), &balanceLedger{balance: 10})
	ctx := context.Background()

	bad := []SubmitInput{
		{TenantID: "t", PrizeKey: "p", PointsCost: 1},
		{UserID: "u", PrizeKey: "p", PointsCost: 1},
		{UserID: "u", TenantID: "t", PointsCost: 1},
		{UserID: "u", TenantID: "t", PrizeKey: "p"},
		{UserID: "u", TenantID: "t", PrizeKey: "p", PointsCost: -1},
	}
	for i, input := range bad {
		if _, err := svc.Submit(ctx, input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestResolve_ApprovalDebitsLedger(t *testing.T) {
	repo := newMemRepository()
	led := &balanceLedger{balance: 10}
	svc := newTestService(t, repo, led)
	ctx := context.Background()

	request, err := svc.Submit(ctx, submitInput())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	resolved, err := svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Approve: true, Notes: "shipped"})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved.Status != enums.RedemptionStatusApproved {
		t.Fatalf("expected approved, got %s", resolved.Status)
	}
	if resolved.ProcessedAt == nil || resolved.Notes != "shipped" {
		t.Fatalf("expected processed metadata, got %+v", resolved)
	}
	if len(led.credits) != 1 || led.credits[0].Delta != -5 ||
		led.credits[0].Reason != enums.TransactionReasonRedemption {
		t.Fatalf("unexpected ledger debit: %+v", led.credits)
	}
	if led.balance != 5 {
		t.Fatalf("expected balance 5 after debit, got %d", led.balance)
	}
}

func TestResolve_RejectionLeavesBalance(t *testing.T) {
	repo := newMemRepository()
	led := &balanceLedger{balance: 10}
	svc := newTestService(t, repo, led)
	ctx := context.Background()

	request, err := svc.Submit(ctx, submitInput())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	resolved, err := svc.Resolve(ctx, ResolveInput{RequestID: request.ID})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved.Status != enums.RedemptionStatusRejected {
		t.Fatalf("expected rejected, got %s", resolved.Status)
	}
	if len(led.credits) != 0 {
		t.Fatalf("rejection must not touch the ledger, got %+v", led.credits)
	}
}

func TestResolve_OnlyPendingRequests(t *testing.T) {
	repo := newMemRepository()
	led := &balanceLedger{balance: 10}
	svc := newTestService(t, repo, led)
	ctx := context.Background()

	request, err := svc.Submit(ctx, submitInput())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Approve: true}); err != nil {
		t.Fatalf("first Resolve error: %v", err)
	}

	_, err = svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Approve: true})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(led.credits) != 1 {
		t.Fatalf("a decided request must not debit twice, got %+v", led.credits)
	}
}

func TestResolve_UnknownRequest(t *testing.T) {
	svc := newTestService(t, newMemRepository(), &balanceLedger{})

	_, err := svc.Resolve(context.Background(), ResolveInput{RequestID: uuid.New()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestList_FiltersByStatus(t *testing.T) {
	repo := newMemRepository()
	led := &balanceLedger{balance: 50}
	svc := newTestService(t, repo, led)
	ctx := context.Background()

	first, err := svc.Submit(ctx, submitInput())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := svc.Submit(ctx, submitInput()); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := svc.Resolve(ctx, ResolveInput{RequestID: first.ID, Approve: true}); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	pending, err := svc.List(ctx, "tenant_1", enums.RedemptionStatusPending)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending request, got %d", len(pending))
	}

	all, err := svc.List(ctx, "tenant_1", "")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two requests total, got %d", len(all))
	}

	if _, err := svc.List(ctx, "tenant_1", "bogus"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("unknown status should be rejected, got %v", err)
	}
}
