package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/regsuite/registry-core/internal/domain/port/persistence"
	lockUseCase "github.com/regsuite/registry-core/internal/domain/usecase/lock"
	"github.com/regsuite/registry-core/internal/domain/usecase/resave"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/api/handler"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/api/routes"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/database"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/logger"
	clockAdapter "github.com/regsuite/registry-core/internal/infrastructure/adapter/time"
	"github.com/regsuite/registry-core/internal/infrastructure/config"
	"github.com/regsuite/registry-core/internal/infrastructure/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create logger
	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	defer func() { _ = appLogger.Flush() }()

	clock := clockAdapter.NewSystemClock()

	// Setup store configurations
	primaryCfg := storeConfig("primary", &cfg.PrimaryDatabase, cfg.Logger.Level)
	var secondaryCfg *database.Config
	if cfg.SecondaryDatabase.Enabled {
		secondaryCfg = storeConfig("legacy", &cfg.SecondaryDatabase, cfg.Logger.Level)
	}

	// Connect to the backing stores
	dbManager, err := database.NewManager(primaryCfg, secondaryCfg, clock, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to backing stores", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer func() { _ = dbManager.Close() }()

	// Run migrations on every connected store
	if err := dbManager.Migrate(); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Metrics
	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	// Assemble the store the use cases see: the primary alone, or the
	// dual-store coordinator when the legacy store is configured
	var store persistence.Store = dbManager.PrimaryStore()
	if secondary := dbManager.SecondaryStore(); secondary != nil {
		store = database.NewDualStore(dbManager.PrimaryStore(), secondary, clock, appLogger, appMetrics, cfg.Cache.ResourceTTL)
	}

	// Initialize use cases
	lockService := lockUseCase.NewService(store, clock, appLogger, lockUseCase.Config{
		VerificationCodeTTL: cfg.Lock.VerificationCodeTTL,
	})

	resaveCfg := resave.Config{
		Parallelism: cfg.Resave.Parallelism,
		ShardSize:   cfg.Resave.ShardSize,
		Fast:        cfg.Resave.Fast,
	}

	// Initialize API handlers
	lockHandler := handler.NewLockHandler(lockService, appLogger, appMetrics)
	resaveHandler := handler.NewResaveHandler(store, clock, appLogger, appMetrics, resaveCfg)

	// Initialize Gin router
	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, lockHandler, resaveHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		appLogger.Info("Starting server", map[string]any{
			"addr": server.Addr,
			"env":  cfg.Environment,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{
			"error": err.Error(),
		})
	}

	appLogger.Info("Server exited gracefully", nil)
}

// storeConfig maps one store's configuration section to the database adapter
func storeConfig(name string, db *config.DatabaseConfig, logLevel string) *database.Config {
	return &database.Config{
		Name:            name,
		Host:            db.Host,
		Port:            db.Port,
		Username:        db.Username,
		Password:        db.Password,
		Database:        db.Database,
		SSLMode:         db.SSLMode,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
		LogLevel:        firstNonEmpty(db.LogLevel, logLevel),
		RetryAttempts:   db.RetryAttempts,
		RetryDelay:      db.RetryDelay,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
