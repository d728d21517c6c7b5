package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/session-service/internal/api/http"
	"github.com/spec-kit/session-service/internal/api/http/handlers"
	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/limiter"
	"github.com/spec-kit/session-service/internal/observability"
	"github.com/spec-kit/session-service/internal/persistence"
	"github.com/spec-kit/session-service/internal/repository"
	"github.com/spec-kit/session-service/internal/service"
	"github.com/spec-kit/session-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.AccessTokenTTL(),
		Issuer: cfg.Auth.Issuer,
	})
	if err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var users repository.UserRepository
	if pool := pg.PoolHandle(); pool != nil {
		users = repository.NewUserRepository(pool)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	sessionService := service.NewSessionService(tokens, dispatcher, metrics, logger)
	authService := service.NewAuthService(service.AuthDependencies{
		Users:  users,
		Tokens: tokens,
		Limiter: limiter.NewLoginLimiter(redis.Client, limiter.LoginConfig{
			MaxAttempts: cfg.RateLimit.LoginMaxAttempts,
			Window:      cfg.RateLimit.LoginWindow(),
		}),
		Dispatcher: dispatcher,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})

	cookies := handlers.NewCookiePolicy(cfg.Cookie)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Session:           handlers.NewSessionHandler(sessionService, cookies),
		Login:             handlers.NewLoginHandler(authService, cookies),
		SessionMiddleware: auth.NewSessionMiddleware(tokens, cookies.Name),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
