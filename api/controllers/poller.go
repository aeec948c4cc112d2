package controllers

import (
	"context"
	"net/http"

	"github.com/chatpoints/chatpoints-backend/api/responses"
	"github.com/chatpoints/chatpoints-backend/internal/poller"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

// PollerControl is the operator surface of the poller lifecycle.
type PollerControl interface {
	Start(ctx context.Context) error
	Stop()
	Status() poller.Status
	ResetCursors(ctx context.Context) error
}

func PollerStatus(ctrl PollerControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := ctrl.Status()
		responses.WriteSuccess(w, map[string]any{
			"state":        status.State,
			"interval_ms":  status.Interval.Milliseconds(),
			"channels":     status.Channels,
			"last_tick_at": status.LastTickAt,
		})
	}
}

func PollerStart(ctrl PollerControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.Start(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"state": ctrl.Status().State})
	}
}

func PollerStop(ctrl PollerControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl.Stop()
		responses.WriteSuccess(w, map[string]any{"state": ctrl.Status().State})
	}
}

// PollerResetCursors re-seeds every channel cursor to its current newest
// message, the same as a first run.
func PollerResetCursors(ctrl PollerControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.ResetCursors(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reset"})
	}
}
