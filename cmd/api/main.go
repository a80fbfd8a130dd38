// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis_rate/v10"

	"github.com/notbyai-space/curation-api/internal/auth"
	"github.com/notbyai-space/curation-api/internal/config"
	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/feed"
	"github.com/notbyai-space/curation-api/internal/health"
	"github.com/notbyai-space/curation-api/internal/metrics"
	"github.com/notbyai-space/curation-api/internal/middleware"
	"github.com/notbyai-space/curation-api/internal/moderation"
	"github.com/notbyai-space/curation-api/internal/post"
	"github.com/notbyai-space/curation-api/internal/quota"
	"github.com/notbyai-space/curation-api/internal/server"
	"github.com/notbyai-space/curation-api/internal/user"
	"github.com/notbyai-space/curation-api/migrations"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		version, err := core.Migrate(db.DB.DB, migrations.FS)
		if err != nil {
			return err
		}
		logger.Info("database migrated", "version", version)
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}()
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	verifier, err := auth.NewVerifier(ctx, cfg.Identity)
	if err != nil {
		return err
	}
	logger.Info("identity verifier initialized",
		"keys", verifier.KeyCount(),
		"issuer", cfg.Identity.Issuer,
	)

	calendar, err := core.NewCalendar(cfg.Content.Timezone)
	if err != nil {
		return err
	}

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, logger)
	if err := userSvc.SeedInvites(ctx, cfg.Invite.BootstrapCodes); err != nil {
		return err
	}

	enforcer, err := quota.New(
		cfg.Quota.Backend,
		cfg.Content.DailyPostLimit,
		db.DB,
		redis.Client,
	)
	if err != nil {
		return err
	}
	logger.Info("quota enforcer ready",
		"backend", cfg.Quota.Backend,
		"daily_limit", enforcer.Limit(),
	)

	postRepo := post.NewRepository(db.DB)
	postSvc := post.NewService(post.ServiceConfig{
		Repo:      postRepo,
		Quota:     enforcer,
		Calendar:  calendar,
		MaxLength: cfg.Content.MaxLength,
		Logger:    logger,
	})
	feedSvc := feed.NewService(postRepo, calendar)
	moderationSvc := moderation.NewService(postRepo, postSvc, userSvc, calendar)

	healthHandler := health.NewHandler(
		health.Check{Name: "database", Pinger: db},
		health.Check{
			Name:     "redis",
			Pinger:   redis,
			Optional: cfg.Quota.Backend != quota.BackendRedis,
		},
	)

	userHandler := user.NewHandler(userSvc)
	postHandler := post.NewHandler(postSvc, cfg.Feed.DefaultLimit, cfg.Feed.MaxLimit)
	feedHandler := feed.NewHandler(
		feedSvc,
		calendar,
		cfg.Feed.DefaultLimit,
		cfg.Feed.MaxLimit,
	)
	moderationHandler := moderation.NewHandler(
		moderationSvc,
		moderation.SystemProbe{
			DBStats:    db.PoolStats,
			DBPing:     db.Ping,
			RedisStats: redis.PoolStats,
			RedisPing:  redis.Ping,
		},
		cfg.Feed.DefaultLimit,
		cfg.Feed.MaxLimit,
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics.Enabled {
		router.Use(metrics.InstrumentHandler(cfg.Metrics.Path))
	}

	baseLimit := middleware.PerWindow(
		cfg.RateLimit.Requests,
		cfg.RateLimit.Window,
		cfg.RateLimit.Burst,
	)
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests*2,
				cfg.RateLimit.Window,
				cfg.RateLimit.Burst*2,
			),
			KeyFunc:  middleware.KeyByIP,
			FailOpen: true,
		}).Handler,
	)

	userLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    baseLimit,
		KeyFunc:  middleware.KeyByUser,
		FailOpen: true,
		RoleLimits: map[string]redis_rate.Limit{
			string(user.RoleModerator): middleware.PerWindow(
				cfg.RateLimit.Requests*5,
				cfg.RateLimit.Window,
				cfg.RateLimit.Burst*5,
			),
		},
	})

	healthHandler.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	authenticator := middleware.Authenticator(verifier)
	resolveUser := func(next http.Handler) http.Handler {
		return chi.Chain(
			middleware.ResolveUser(userSvc),
			userLimiter.Handler,
		).Handler(next)
	}

	router.Route("/v1", func(r chi.Router) {
		userHandler.RegisterRoutes(r, authenticator, resolveUser)
		postHandler.RegisterRoutes(r, authenticator, resolveUser)
		moderationHandler.RegisterRoutes(r, authenticator, resolveUser)
		feedHandler.RegisterRoutes(r, authenticator, resolveUser)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
