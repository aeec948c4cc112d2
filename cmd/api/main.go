package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatpoints/chatpoints-backend/api/routes"
	"github.com/chatpoints/chatpoints-backend/internal/bot"
	"github.com/chatpoints/chatpoints-backend/internal/cursor"
	"github.com/chatpoints/chatpoints-backend/internal/ingest"
	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/internal/poller"
	"github.com/chatpoints/chatpoints-backend/internal/reconcile"
	"github.com/chatpoints/chatpoints-backend/internal/redemptions"
	"github.com/chatpoints/chatpoints-backend/pkg/chat"
	"github.com/chatpoints/chatpoints-backend/pkg/config"
	"github.com/chatpoints/chatpoints-backend/pkg/db"
	"github.com/chatpoints/chatpoints-backend/pkg/logger"
	"github.com/chatpoints/chatpoints-backend/pkg/metrics"
	"github.com/chatpoints/chatpoints-backend/pkg/migrate"
	"github.com/chatpoints/chatpoints-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	chatClient, err := chat.NewClient(cfg.Chat)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat client", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(
		ledger.NewRepository(dbClient.DB()),
		dbClient,
		chatClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	redemptionsService, err := redemptions.NewService(
		redemptions.NewRepository(dbClient.DB()),
		ledgerService,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create redemptions service", err)
		os.Exit(1)
	}

	announcer := bot.NewAnnouncer(chatClient, cfg.Points.ReactionEmoji, logg)
	commands := bot.NewCommandHandler(ledgerService, chatClient, cfg.Points.LeaderboardTop, logg)

	cursors := cursor.NewStore(dbClient.DB())
	pipeline, err := ingest.NewPipeline(
		chatClient,
		cursors,
		ledgerService,
		announcer,
		commands,
		cfg.Points.PerImage,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest pipeline", err)
		os.Exit(1)
	}
	if cfg.Chat.AgentUserID != "" {
		pipeline.IgnoreAuthor(cfg.Chat.AgentUserID)
	}

	reconciler, err := reconcile.NewReconciler(chatClient, ledgerService, announcer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	lock, err := poller.NewRedisLock(redisClient, redisClient.LockKey("poller:"+cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create poller lock", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pollerMetrics := metrics.NewPollerMetrics(registry)

	channelPoller, err := poller.New(poller.Params{
		Logger:     logg,
		Source:     chatClient,
		Cursors:    cursors,
		Pipeline:   pipeline,
		Reconciler: reconciler,
		Channels:   cfg.Chat.ChannelDescriptors(),
		Interval:   cfg.Points.PollInterval,
		Lock:       lock,
		Metrics:    pollerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create poller", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := channelPoller.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start poller", err)
		os.Exit(1)
	}
	defer channelPoller.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"channels": len(cfg.Chat.Channels),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:         cfg,
			Logger:         logg,
			DBPinger:       dbClient,
			RedisPinger:    redisClient,
			Poller:         channelPoller,
			Ledger:         ledgerService,
			Redemptions:    redemptionsService,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	channelPoller.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "error shutting down api server", err)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
