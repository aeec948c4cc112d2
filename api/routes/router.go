package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatpoints/chatpoints-backend/api/controllers"
	"github.com/chatpoints/chatpoints-backend/api/middleware"
	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/internal/redemptions"
	"github.com/chatpoints/chatpoints-backend/pkg/config"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
)

// Params carries everything the router wires into handlers. Nil optional
// members (MetricsHandler, pingers) disable the matching routes or checks.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       controllers.Pinger
	RedisPinger    controllers.Pinger
	Poller         controllers.PollerControl
	Ledger         ledger.Service
	Redemptions    redemptions.Service
	MetricsHandler http.Handler
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger
	tenantID := cfg.Chat.CompanyID

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisPinger))
	})

	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Admin, logg))

		r.Route("/poller", func(r chi.Router) {
			r.Get("/status", controllers.PollerStatus(p.Poller))
			r.Post("/start", controllers.PollerStart(p.Poller, logg))
			r.Post("/stop", controllers.PollerStop(p.Poller))
			r.Post("/reset-cursors", controllers.PollerResetCursors(p.Poller, logg))
		})

		r.Get("/users/{userID}/points", controllers.UserPoints(p.Ledger, tenantID, logg))
		r.Get("/leaderboard", controllers.Leaderboard(p.Ledger, tenantID, cfg.Points.LeaderboardTop, logg))
		r.Post("/points/credit", controllers.CreditPoints(p.Ledger, tenantID, logg))
		r.Post("/points/freetime", controllers.Freetime(p.Ledger, tenantID, logg))

		r.Route("/redemptions", func(r chi.Router) {
			r.Get("/", controllers.ListRedemptions(p.Redemptions, tenantID, logg))
			r.Post("/", controllers.SubmitRedemption(p.Redemptions, tenantID, logg))
			r.Post("/{requestID}/resolve", controllers.ResolveRedemption(p.Redemptions, logg))
		})
	})

	return r
}
