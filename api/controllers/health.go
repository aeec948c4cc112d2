package controllers

import (
	"context"
	"net/http"

	"github.com/chatpoints/chatpoints-backend/api/responses"
	"github.com/chatpoints/chatpoints-backend/pkg/config"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

// Pinger is any dependency with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ChatPoints-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the database and Redis are reachable. Nil pingers are
// skipped so tests and partial deployments stay green.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ChatPoints-Env", cfg.App.Env)

		checks := map[string]Pinger{
			"database": dbP,
			"redis":    redisP,
		}
		for name, pinger := range checks {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
