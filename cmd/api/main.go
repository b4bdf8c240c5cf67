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

	httptransport "github.com/spec-kit/sla-governance/internal/api/http"
	"github.com/spec-kit/sla-governance/internal/api/http/handlers"
	"github.com/spec-kit/sla-governance/internal/auth"
	"github.com/spec-kit/sla-governance/internal/cache"
	"github.com/spec-kit/sla-governance/internal/config"
	"github.com/spec-kit/sla-governance/internal/events"
	"github.com/spec-kit/sla-governance/internal/governance"
	"github.com/spec-kit/sla-governance/internal/observability"
	"github.com/spec-kit/sla-governance/internal/persistence"
	"github.com/spec-kit/sla-governance/internal/service"
	"github.com/spec-kit/sla-governance/internal/worker"
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

	stores, err := persistence.OpenStores(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err), zap.String("driver", string(cfg.Store.Driver)))
	}
	defer stores.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pingers := map[string]handlers.Pinger{"store": stores}
	var reportCache service.ReportCache
	if redis.Enabled() {
		reportCache = cache.NewReportCache(redis.Client, cfg.SLA.ReportCacheTTL())
		pingers["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	govOpts := governance.Options{
		RiskThreshold: cfg.SLA.RiskThreshold(),
		FlagThreshold: cfg.SLA.FlagThreshold,
		TopRequesters: cfg.SLA.TopRequesters,
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: stores.Users,
		Logger:   logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   stores.Users,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    stores.Tickets,
		UserRepo:      stores.Users,
		Dispatcher:    dispatcher,
		Logger:        logger,
		RiskThreshold: cfg.SLA.RiskThreshold(),
	})
	governanceService := service.NewGovernanceService(service.GovernanceDependencies{
		TicketRepo: stores.Tickets,
		UserRepo:   stores.Users,
		Cache:      reportCache,
		Options:    govOpts,
		Logger:     logger,
	})
	governanceService.RegisterCacheInvalidation(dispatcher)
	service.NewActivityLogger(dispatcher, logger).RegisterHandlers()

	refresherDone := worker.NewReportRefresher(governanceService, cfg.SLA.ReportRefreshInterval(), logger).Start(ctx)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, pingers)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          handlers.NewUsersHandler(authService, userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Governance:     handlers.NewGovernanceHandler(governanceService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), stores.Users),
	})

	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("store", string(stores.Driver)))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-refresherDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
