package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-engine/internal/aggregator"
	httptransport "github.com/spec-kit/provisioning-engine/internal/api/http"
	"github.com/spec-kit/provisioning-engine/internal/api/http/handlers"
	"github.com/spec-kit/provisioning-engine/internal/auth"
	"github.com/spec-kit/provisioning-engine/internal/blueprint"
	"github.com/spec-kit/provisioning-engine/internal/config"
	"github.com/spec-kit/provisioning-engine/internal/dbprovision"
	"github.com/spec-kit/provisioning-engine/internal/observability"
	"github.com/spec-kit/provisioning-engine/internal/orchestrator"
	"github.com/spec-kit/provisioning-engine/internal/persistence"
	"github.com/spec-kit/provisioning-engine/internal/registry"
	"github.com/spec-kit/provisioning-engine/internal/workflow"
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

	adminPool, err := persistence.NewAdminPool(ctx, cfg.AdminDB, logger)
	if err != nil {
		logger.Fatal("failed to connect shared database server", zap.Error(err))
	}
	defer adminPool.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	reg := registry.NewPostgresRegistry(pg.PoolHandle())
	provisioner := dbprovision.NewPostgresProvisioner(adminPool, pg.PoolHandle(), cfg.AdminDB.Host, cfg.AdminDB.Port, logger)
	renderer := blueprint.NewRenderer(cfg.Platform.TenantsDir)
	runner := orchestrator.NewExecRunner(cfg.Platform.DockerBin)
	orch := orchestrator.NewComposeOrchestrator(runner, cfg.Platform.TenantsDir,
		cfg.Platform.ApplyTimeout(), cfg.Platform.RemoveTimeout(), logger)
	seeder := workflow.NewHTTPSeeder(cfg.Platform.BaseDomain)

	engine := workflow.NewEngine(workflow.Dependencies{
		Registry:     reg,
		Provisioner:  provisioner,
		Renderer:     renderer,
		Orchestrator: orch,
		Seeder:       seeder,
		Metrics:      metrics,
		Logger:       logger,
	}, cfg.Platform.BaseDomain, workflow.RetryPolicy{
		MaxAttempts:    cfg.Platform.RetryMaxAttempts,
		InitialBackoff: cfg.Platform.RetryInitialBackoff,
	}, cfg.Auth.BcryptCost)

	agg := aggregator.NewStatusAggregator(reg, orch, redis.Client, clock.New(),
		cfg.Platform.PollInterval(), logger)
	go agg.Run(ctx)

	operator := auth.NewOperator(cfg.Auth)
	authMiddleware := auth.NewMiddleware(operator.TokenManager())

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, orch),
		Auth:           handlers.NewAuthHandler(operator),
		Tenants:        handlers.NewTenantsHandler(engine, agg),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
