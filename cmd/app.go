package main

import (
	"context"
	"fmt"

	"dmis/internal/caching"
	"dmis/internal/config"
	"dmis/internal/logger"
	"dmis/internal/metrics"
	"dmis/internal/repositories"
	"dmis/internal/services"
	"dmis/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	pool     *pgxpool.Pool
	cache    caching.CacheService
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	rbac       services.RBACService
	needsLists services.NeedsListService
	planning   services.PlanningService
	freshness  services.FreshnessService
	events     services.EventService
	warehouses services.WarehouseService
	syncs      services.SyncService
	audit      services.AuditService
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required (set [database].url or DATABASE_URL)")
	}
	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, log)
	if err != nil {
		return nil, err
	}

	var cache caching.CacheService
	if cfg.Redis.Addr != "" {
		cache = caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	a := &app{
		cfg:      cfg,
		logger:   log,
		pool:     pool,
		cache:    cache,
		registry: registry,
		metrics:  m,
	}

	warehouseRepo := repositories.NewWarehouseRepository(pool)
	eventRepo := repositories.NewEventRepository(pool)
	auditRepo := repositories.NewAuditRepository(pool)
	a.rbac = services.NewRBACService(repositories.NewPermissionRepository(pool), cache, cfg.PermissionTTL(), log)
	a.needsLists = services.NewNeedsListService(repositories.NewNeedsListRepository(pool), auditRepo, a.rbac, m, log)
	a.planning = services.NewPlanningService(eventRepo, repositories.NewSnapshotRepository(pool), a.needsLists, a.rbac, policy, cfg.Planner.Workers, m, log)
	a.freshness = services.NewFreshnessService(warehouseRepo, cache, policy.Freshness, services.FreshnessOptions{
		SummaryTTL:     cfg.FreshnessTTL(),
		RefreshFlagTTL: cfg.RefreshFlagTTL(),
	}, m, log)
	a.events = services.NewEventService(eventRepo, a.rbac, log)
	a.warehouses = services.NewWarehouseService(warehouseRepo)
	a.syncs = services.NewSyncService(repositories.NewSyncRepository(pool), warehouseRepo, a.freshness, log)
	a.audit = services.NewAuditService(auditRepo)
	return a, nil
}

func (a *app) Close() {
	a.pool.Close()
	_ = a.logger.Sync()
}
