package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"paywatch.backend/internal/config"
	"paywatch.backend/internal/infrastructure/cache"
	"paywatch.backend/internal/infrastructure/explorer"
	"paywatch.backend/internal/infrastructure/jobs"
	"paywatch.backend/internal/infrastructure/models"
	"paywatch.backend/internal/infrastructure/pricefeed"
	"paywatch.backend/internal/infrastructure/repositories"
	"paywatch.backend/internal/interfaces/http/handlers"
	"paywatch.backend/internal/usecases"
	"paywatch.backend/pkg/logger"
	"paywatch.backend/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	logger.Init(cfg.Server.Env)
	logger.Info(context.Background(), "logger initialized", zap.String("env", cfg.Server.Env))

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.URL()), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(
		&models.PaymentIntent{},
		&models.TransitionEvent{},
		&models.DailyMetricRollup{},
		&models.MerchantWallet{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Shared cache: Redis when configured, in-process TTL map otherwise.
	var sharedCache cache.Cache
	if cfg.Redis.URL != "" {
		if err := redis.Init(cfg.Redis.URL, cfg.Redis.Password); err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		sharedCache = cache.NewRedisCache(redis.GetClient())
		logger.Info(context.Background(), "redis cache initialized")
	} else {
		sharedCache = cache.NewMemoryCache()
		logger.Info(context.Background(), "using in-process cache")
	}

	// Repositories
	intentRepo := repositories.NewIntentRepository(db)
	eventRepo := repositories.NewTransitionEventRepository(db)
	rollupRepo := repositories.NewRollupRepository(db)
	walletRepo := repositories.NewWalletRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// External clients
	feedClient := pricefeed.NewClient(cfg.PriceFeed.BaseURL, cfg.PriceFeed.Timeout)
	explorerClient := explorer.NewClient(cfg.Explorer.BaseURL, cfg.Explorer.Timeout)

	// Usecases
	walletUC := usecases.NewWalletUsecase(walletRepo)
	if cfg.WalletSeedFile != "" {
		count, err := walletUC.SeedFromFile(context.Background(), cfg.WalletSeedFile)
		if err != nil {
			return fmt.Errorf("failed to seed merchant wallets: %w", err)
		}
		logger.Info(context.Background(), "merchant wallets seeded", zap.Int("count", count))
	}

	oracle := usecases.NewPriceOracleUsecase(feedClient, sharedCache, cfg.PriceFeed.CacheTTL, cfg.PriceFeed.Fallbacks)
	allocator := usecases.NewAllocatorUsecase(walletRepo, intentRepo, oracle, cfg.Fingerprint)
	aggregator := usecases.NewMetricsUsecase(rollupRepo)
	intentUC := usecases.NewIntentUsecase(intentRepo, eventRepo, allocator, aggregator, uow)
	statusCache := usecases.NewStatusCache(sharedCache, intentUC.GetIntent, cfg.StatusCache.PendingTTL, cfg.StatusCache.TerminalTTL)
	intentUC.SetStatusCache(statusCache)

	// Watcher supervisor: resume any intents left pending by a previous run.
	supervisor := jobs.NewWatcherSupervisor(intentUC, explorerClient, intentRepo, cfg.Watcher)
	if err := supervisor.Resume(context.Background()); err != nil {
		return fmt.Errorf("failed to resume pending watchers: %w", err)
	}

	// HTTP surface
	intentHandler := handlers.NewIntentHandler(intentUC, supervisor)
	rollupHandler := handlers.NewRollupHandler(aggregator)
	router := setupRouter(intentHandler, rollupHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info(context.Background(), "server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(context.Background(), "server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(context.Background(), "shutting down")

	// Stop watchers first; unmatched intents stay PENDING and are resumed on
	// the next start.
	supervisor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info(context.Background(), "server stopped")
	return nil
}
