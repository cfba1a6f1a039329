package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/api"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/config"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/logging"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics"
	promMetrics "github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics/prometheus"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/memory"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/ownerfilter"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/postgres"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/redis"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/resilient"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	logger.Info("starting finance tracker",
		zap.String("backend", cfg.Store.Backend),
		zap.String("address", cfg.Server.Address),
	)

	registry := prometheus.NewRegistry()
	collector := promMetrics.NewPrometheusCollector("finance_tracker")
	if err := collector.Register(registry); err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	store, err := buildStore(cfg, collector)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer store.Close()
	logger.Info("store initialized", zap.String("store", store.Name()))

	service := ledger.NewService(store, ledger.ServiceConfig{
		AllowOverdraft: cfg.Ledger.AllowOverdraft,
		Logger:         logger.Named("ledger"),
		Metrics:        collector,
	})

	server, err := api.NewServer(service, logger.Named("api"), api.ServerConfig{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
		Registry:     registry,
	})
	if err != nil {
		logger.Fatal("failed to initialize server", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("stopped")
}

// buildStore assembles the configured backend with its resilience and
// owner filter wrappers.
func buildStore(cfg config.Config, collector metrics.Collector) (ledger.Store, error) {
	var (
		store ledger.Store
		err   error
	)

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		store, err = postgres.New(cfg.Store.Postgres)
	case config.BackendRedis:
		store, err = redis.New(cfg.Store.Redis)
	default:
		store, err = memory.New(memory.Config{
			Name:    "memory",
			WALPath: cfg.Store.WALPath,
		})
	}
	if err != nil {
		return nil, err
	}

	// The memory store has no network to fail; the breaker only wraps
	// remote backends.
	if cfg.Store.Resilience.Enabled && cfg.Store.Backend != config.BackendMemory {
		rcfg := resilient.DefaultConfig()
		if cfg.Store.Resilience.Timeout > 0 {
			rcfg.Timeout = cfg.Store.Resilience.Timeout.Std()
		}
		store = resilient.NewWithMetrics(store, rcfg, collector)
	}

	if cfg.Store.OwnerFilter.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		filtered, err := ownerfilter.New(
			ctx,
			store,
			cfg.Store.OwnerFilter.ExpectedOwners,
			cfg.Store.OwnerFilter.FalsePositiveRate,
			collector,
		)
		if err != nil {
			store.Close()
			return nil, err
		}
		store = filtered
	}

	return store, nil
}
