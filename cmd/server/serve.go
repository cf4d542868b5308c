package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prajwalbharadwajbm/clipescrow/internal/cache"
	"github.com/prajwalbharadwajbm/clipescrow/internal/config"
	"github.com/prajwalbharadwajbm/clipescrow/internal/custodian"
	"github.com/prajwalbharadwajbm/clipescrow/internal/database"
	"github.com/prajwalbharadwajbm/clipescrow/internal/ledger"
	"github.com/prajwalbharadwajbm/clipescrow/internal/logger"
	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prajwalbharadwajbm/clipescrow/internal/repository"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
	"github.com/prajwalbharadwajbm/clipescrow/internal/transport"
	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfigs(); err != nil {
				return err
			}
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg := config.AppConfigInstance

	kitLogger := logger.New(logger.Config{
		Service: cfg.GeneralConfig.ServiceName,
		Version: cfg.GeneralConfig.Version,
		Level:   cfg.GeneralConfig.LogLevel,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	m := metrics.NewPrometheusMetrics(reg)

	var custodianOpts []custodian.MemoryOption
	if cfg.LedgerConfig.UnlimitedCustodian {
		custodianOpts = append(custodianOpts, custodian.WithUnlimitedSource())
	}
	assetCustodian := custodian.NewInstrumented(custodian.NewMemory(custodianOpts...), m, kitLogger)
	registry := ledger.NewRegistry(assetCustodian)

	var healthOpts []transport.HandlerOption

	var repo service.Repository
	switch cfg.LedgerConfig.StorageDriver {
	case config.StoragePostgres:
		db, cleanup, err := database.Initialize(cfg.DatabaseConfig, cfg.DatabaseConfig.RunMigrations)
		if err != nil {
			return err
		}
		defer cleanup()
		repo = repository.NewPostgresRepository(db)
		healthOpts = append(healthOpts, transport.WithHealthCheck("database", db.HealthCheck))
		level.Info(kitLogger).Log("msg", "using postgres storage", "host", cfg.DatabaseConfig.Host, "db", cfg.DatabaseConfig.DBName)
	default:
		repo = repository.NewMemoryRepository()
		level.Warn(kitLogger).Log("msg", "using in-memory storage; state is lost on restart")
	}
	repo = repository.NewInstrumentedRepository(repo, m)

	ledgerService := service.NewLedgerService(registry, repo)
	if err := ledgerService.Bootstrap(ctx, cfg.LedgerConfig.SupportedAssets); err != nil {
		return fmt.Errorf("failed to restore ledger: %w", err)
	}

	var svc service.CampaignLedgerService = ledgerService
	if cfg.CacheConfig.Enabled {
		hybridCache, err := cache.NewHybridCache(config.GetCacheConfig())
		if err != nil {
			return err
		}
		defer hybridCache.Close()
		svc = cache.NewCachedService(svc, hybridCache, cfg.CacheConfig.DefaultTTL, m, kitLogger)
		healthOpts = append(healthOpts,
			transport.WithHealthCheck("cache", hybridCache.HealthCheck),
			transport.WithHealthDetail("cache", func() any { return config.GetCacheHealth(hybridCache) }),
		)
	}

	handler := routes(svc, kitLogger, m, reg, cfg.GeneralConfig, healthOpts...)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.GeneralConfig.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return run(ctx, srv, kitLogger)
}

// run serves until SIGINT/SIGTERM, then drains in-flight requests
func run(ctx context.Context, srv *http.Server, logger log.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to serve http server: %w", err)
	case <-ctx.Done():
	}

	level.Info(logger).Log("msg", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
