package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chatpoints/chatpoints-backend/api/responses"
	"github.com/chatpoints/chatpoints-backend/api/validators"
	"github.com/chatpoints/chatpoints-backend/internal/redemptions"
	"github.com/chatpoints/chatpoints-backend/pkg/enums"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

type submitRedemptionBody struct {
	UserID     string `json:"user_id" validate:"required"`
	PrizeKey   string `json:"prize_key" validate:"required"`
	PrizeLabel string `json:"prize_label" validate:"required"`
	PointsCost int    `json:"points_cost" validate:"required,gt=0"`
}

func SubmitRedemption(svc redemptions.Service, tenantID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body submitRedemptionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Submit(r.Context(), redemptions.SubmitInput{
			UserID:     body.UserID,
			TenantID:   tenantID,
			PrizeKey:   body.PrizeKey,
			PrizeLabel: body.PrizeLabel,
			PointsCost: body.PointsCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

type resolveRedemptionBody struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" validate:"max=512"`
}

func ResolveRedemption(svc redemptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "request id must be a uuid"))
			return
		}

		var body resolveRedemptionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Resolve(r.Context(), redemptions.ResolveInput{
			RequestID: requestID,
			Approve:   body.Approve,
			Notes:     body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func ListRedemptions(svc redemptions.Service, tenantID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := enums.RedemptionStatus(r.URL.Query().Get("status"))

		requests, err := svc.List(r.Context(), tenantID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": requests})
	}
}
