package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dmis/internal/handlers"
	"dmis/internal/jobs/background"
	"dmis/internal/middleware"
	"dmis/internal/services"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := appFromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return serve(cmd.Context(), a)
	},
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	log := a.logger

	store, err := services.NewMinioService(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
	if err != nil {
		return fmt.Errorf("failed to initialize MinIO: %w", err)
	}
	if err := store.EnsureBucketExists(ctx, cfg.Storage.Bucket); err != nil {
		log.Warn("export bucket unavailable, exports will fail until it exists",
			zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
	}
	exports := services.NewExportService(a.needsLists, a.warehouses, store, a.rbac, cfg.Storage.Bucket, cfg.PresignExpiry(), log)

	var scheduler *background.JobScheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = background.NewJobScheduler(a.planning, a.freshness, a.events, cfg.Scheduler, log)
		if err != nil {
			return err
		}
		a.freshness.SetRefresher(scheduler)
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				log.Error("failed to stop scheduler", zap.Error(err))
			}
		}()
	}

	jwtOpts := middleware.JWTOptions{Secret: cfg.Auth.JWTSecret, JWKSURL: cfg.Auth.JWKSURL}
	if jwtOpts.Secret == "" && jwtOpts.JWKSURL == "" && cfg.Logging.Development {
		jwtOpts.Secret = random.String(32)
		log.Warn("using generated JWT secret for development", zap.String("secret", jwtOpts.Secret))
	}
	jwtMiddleware, releaseJWKS, err := middleware.JWTMiddleware(jwtOpts, log)
	if err != nil {
		return err
	}
	defer releaseJWKS()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(middleware.AccessLog(log))

	versions := middleware.NewVersionMiddleware()
	e.Use(versions.APIVersionResolver())

	health := handlers.NewHealthHandlers(a.pool, a.cache, version)
	e.GET("/health", health.LivenessCheck)
	e.GET("/health/ready", health.ReadinessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := handlers.API{
		NeedsLists: handlers.NewNeedsListHandlers(a.needsLists, exports),
		Planning:   handlers.NewPlanningHandlers(a.planning),
		Freshness:  handlers.NewFreshnessHandlers(a.freshness),
		Events:     handlers.NewEventHandlers(a.events),
		Warehouses: handlers.NewWarehouseHandlers(a.warehouses, a.syncs),
		Audit:      handlers.NewAuditLogsHandlers(a.audit),
	}
	if scheduler != nil {
		api.Jobs = handlers.NewJobHandlers(scheduler)
	}

	v1 := versions.VersionRoute(e, "v1")
	v1.Use(jwtMiddleware)
	handlers.RegisterRoutes(v1, api, middleware.NewRBACMiddleware(a.rbac))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("server starting", zap.String("addr", addr), zap.String("version", version))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
