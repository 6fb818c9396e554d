package main

import (
	"context"
	"log"
	"net/http"

	"watergrid/gen/openapi"
	"watergrid/migrations"
	"watergrid/pkg/cache"
	"watergrid/pkg/config"
	"watergrid/pkg/database"
	"watergrid/pkg/logger"
	"watergrid/pkg/metrics"
	"watergrid/pkg/server"
	"watergrid/pkg/swagger"
	"watergrid/services/network-svc/internal/handlers"
	"watergrid/services/network-svc/internal/repository"
	"watergrid/services/network-svc/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)

	// Подключение к PostgreSQL
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	// Миграции
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(
			ctx,
			db.Pool(),
			&cfg.Database,
			migrations.PostgresMigrations,
			"postgres",
		); err != nil {
			logger.Fatal("failed to run migrations", "error", err)
		}
	}

	// Кэш результатов расчётов
	var computeCache *cache.ComputeCache
	var resultCache cache.Cache
	if cfg.Cache.Enabled {
		resultCache, err = cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Warn("failed to create cache, continuing without it", "error", err)
		} else {
			defer resultCache.Close()
			computeCache = cache.NewComputeCache(resultCache, cfg.Cache.DefaultTTL)
			logger.Info("Compute cache initialized", "driver", cfg.Cache.Driver)
		}
	}

	// Репозитории и сервисы
	tanks := repository.NewPostgresTankRepository(db)
	valves := repository.NewPostgresValveRepository(db)
	pipelines := repository.NewPostgresPipelineRepository(db)
	snapshots := repository.NewPostgresSnapshotRepository(db)

	networkService := service.New(tanks, valves, pipelines, snapshots, computeCache, cfg.Network)
	exportService := service.NewExportService(networkService, cfg.Export)

	checks := map[string]handlers.HealthCheck{
		"postgres": db.Ping,
	}
	if resultCache != nil {
		checks["cache"] = func(ctx context.Context) error {
			_, err := resultCache.Stats(ctx)
			return err
		}
	}

	// Маршруты
	mux := http.NewServeMux()
	handlers.New(networkService, exportService, checks, cfg.Network.FillThresholds()).RegisterRoutes(mux)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}

	if cfg.Swagger.Enabled {
		swaggerCfg := swagger.DefaultConfig()
		if cfg.Swagger.Title != "" {
			swaggerCfg.Title = cfg.Swagger.Title
		}
		swagger.RegisterRoutes(mux, swaggerCfg, openapi.MustGetSpec())
	}

	logger.Info("Starting network service",
		"port", cfg.HTTP.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	if err := server.New(cfg, mux).Run(); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}
