package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/chatpoints/chatpoints-backend/api/responses"
	"github.com/chatpoints/chatpoints-backend/pkg/config"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

const apiKeyHeader = "X-Api-Key"

// APIKey guards the operator endpoints. The key is accepted in X-Api-Key or
// as a bearer token.
func APIKey(cfg config.AdminConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if presented == "" {
				raw := strings.TrimSpace(r.Header.Get("Authorization"))
				if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
					presented = strings.TrimSpace(raw[7:])
				}
			}
			if presented == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if cfg.APIKey == "" ||
				subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.APIKey)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
