package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/gas-service-portal/internal/api/http"
	"github.com/spec-kit/gas-service-portal/internal/api/http/handlers"
	"github.com/spec-kit/gas-service-portal/internal/auth"
	"github.com/spec-kit/gas-service-portal/internal/config"
	"github.com/spec-kit/gas-service-portal/internal/events"
	"github.com/spec-kit/gas-service-portal/internal/observability"
	"github.com/spec-kit/gas-service-portal/internal/persistence"
	"github.com/spec-kit/gas-service-portal/internal/repository"
	"github.com/spec-kit/gas-service-portal/internal/service"
	"github.com/spec-kit/gas-service-portal/internal/storage"
	"github.com/spec-kit/gas-service-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		userRepo    repository.UserRepository
		requestRepo repository.ServiceRequestRepository
		historyRepo repository.RequestHistoryRepository
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pool := pg.PoolHandle()
		userRepo = repository.NewUserRepository(pool)
		requestRepo = repository.NewServiceRequestRepository(pool)
		historyRepo = repository.NewRequestHistoryRepository(pool)
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory store")
		store := repository.NewMemoryStore()
		userRepo = store.Users()
		requestRepo = store.ServiceRequests()
		historyRepo = store.History()
	}

	var (
		redis   *persistence.Redis
		revoked auth.RevocationStore
	)
	if cfg.Auth.RevocationBackend == config.RevocationBackendRedis {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		revoked = auth.NewRedisRevocationStore(redis.Client)
	} else {
		revoked = auth.NewMemoryRevocationStore()
	}

	attachments, err := storage.NewAttachmentStore(cfg.Upload)
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationWorker := worker.StartNotificationWorker(notificationService, logger)

	authService := service.NewAuthService(cfg.Auth, userRepo, revoked, logger)
	if _, err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	userService := service.NewUserService(userRepo)
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:    requestRepo,
		UserRepo:       userRepo,
		HistoryRepo:    historyRepo,
		Attachments:    attachments,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		MaxAttachments: cfg.Upload.MaxFiles,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, revoked, logger)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.Upload.BodyLimit(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:            handlers.NewAuthHandler(authService),
		Users:           handlers.NewUsersHandler(userService),
		ServiceRequests: handlers.NewServiceRequestsHandler(requestService),
		AuthMiddleware:  authMiddleware,
		Metrics:         metrics,
		MetricsPath:     cfg.Metrics.Path,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	notificationWorker.Stop(drainCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
