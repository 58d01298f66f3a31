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

	httptransport "github.com/qss-platform/resident-service/internal/api/http"
	"github.com/qss-platform/resident-service/internal/api/http/handlers"
	"github.com/qss-platform/resident-service/internal/auth"
	"github.com/qss-platform/resident-service/internal/config"
	"github.com/qss-platform/resident-service/internal/events"
	"github.com/qss-platform/resident-service/internal/observability"
	"github.com/qss-platform/resident-service/internal/persistence"
	"github.com/qss-platform/resident-service/internal/repository"
	"github.com/qss-platform/resident-service/internal/service"
	"github.com/qss-platform/resident-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rds := persistence.NewRedis(cfg.Redis, logger)
	defer rds.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	ownerRepo := repository.NewOwnerRepository(pool)
	masterRepo := repository.NewMasterRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	textRepo := repository.NewBotTextRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute)

	textService := service.NewTextService(textRepo, rds.Handle(), logger)

	var messenger service.Messenger
	if cfg.Notify.WebhookURL != "" {
		messenger = service.NewWebhookMessenger(cfg.Notify.WebhookURL, cfg.Notify.Timeout(), logger)
	} else {
		logger.Warn("NOTIFY_WEBHOOK_URL not provided; notifications go to the log")
		messenger = service.NewLogMessenger(logger)
	}
	notificationService := service.NewNotificationService(
		messenger, textService, ownerRepo, masterRepo, adminRepo, metrics, logger)
	worker.StartNotificationWorker(dispatcher, notificationService)

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		OwnerRepo:   ownerRepo,
		MasterRepo:  masterRepo,
		AdminRepo:   adminRepo,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		MaxPerDay:   cfg.Limits.DailyTicketsPerOwner,
	})
	identityService := service.NewIdentityService(ownerRepo, masterRepo, adminRepo, tokens, cfg.Auth, logger)
	queryService := service.NewQueryService(ticketRepo, masterRepo)
	directoryService := service.NewDirectoryService(ownerRepo, masterRepo, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	app.Use(httptransport.ThrottleMiddleware(rds.Handle(), cfg.Limits.ThrottlePerMinute, logger))

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rds),
		Auth:      handlers.NewAuthHandler(identityService),
		Identity:  handlers.NewIdentityHandler(identityService),
		Tickets:   handlers.NewTicketsHandler(lifecycleService, queryService),
		Dashboard: handlers.NewDashboardHandler(directoryService, textService, queryService),
		Tokens:    tokens,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("addr", cfg.App.Addr()))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
