package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatpoints/chatpoints-backend/api/responses"
	"github.com/chatpoints/chatpoints-backend/api/validators"
	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/pkg/enums"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

const maxLeaderboardLimit = 100

// UserPoints returns a user's balance. Unknown users read as zero; an
// account only exists once the user has earned or been credited points.
func UserPoints(ledgerSvc ledger.Service, tenantID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "user id is required"))
			return
		}

		balance, err := ledgerSvc.GetBalance(r.Context(), userID, tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user_id": userID,
			"balance": balance,
		})
	}
}

func Leaderboard(ledgerSvc ledger.Service, tenantID string, defaultTop int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", defaultTop, 1, maxLeaderboardLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accounts, err := ledgerSvc.TopN(r.Context(), tenantID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := make([]map[string]any, 0, len(accounts))
		for i, account := range accounts {
			entries = append(entries, map[string]any{
				"rank":         i + 1,
				"user_id":      account.UserID,
				"username":     account.Username,
				"display_name": account.DisplayName,
				"balance":      account.Balance,
			})
		}
		responses.WriteSuccess(w, map[string]any{"leaderboard": entries})
	}
}

type creditBody struct {
	UserID string `json:"user_id" validate:"required"`
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,oneof=manual_credit purchase_credit redemption_debit"`
}

// CreditPoints applies a manual balance adjustment. There is no idempotency
// key; the operator deduplicates.
func CreditPoints(ledgerSvc ledger.Service, tenantID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body creditBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := ledgerSvc.Credit(r.Context(), ledger.CreditInput{
			UserID:   body.UserID,
			TenantID: tenantID,
			Delta:    body.Delta,
			Reason:   enums.TransactionReason(body.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user_id": account.UserID,
			"balance": account.Balance,
		})
	}
}

type freetimeBody struct {
	UserID  string    `json:"user_id" validate:"required"`
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required"`
}

// Freetime sets a user's promotional window, typically driven by an
// external purchase.
func Freetime(ledgerSvc ledger.Service, tenantID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body freetimeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := ledgerSvc.SetPromoWindow(r.Context(), body.UserID, tenantID, body.StartAt, body.EndAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user_id":        account.UserID,
			"promo_start_at": account.PromoStartAt,
			"promo_end_at":   account.PromoEndAt,
		})
	}
}
