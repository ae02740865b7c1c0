package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tradeledger/configs"
	"tradeledger/internal/adapter/binance"
	"tradeledger/internal/adapter/cache"
	"tradeledger/internal/adapter/telegram"
	"tradeledger/internal/database"
	delivery "tradeledger/internal/delivery/http"
	"tradeledger/internal/domain"
	"tradeledger/internal/infra"
	"tradeledger/internal/middleware"
	"tradeledger/internal/repository"
	"tradeledger/internal/service"
	"tradeledger/internal/usecase"
	"tradeledger/internal/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := infra.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := utils.SetLocation(cfg.Server.Timezone); err != nil {
		logger.Warn("unknown timezone, using UTC", zap.String("tz", cfg.Server.Timezone), zap.Error(err))
	}

	ctx := context.Background()
	registry := service.NewAccountRegistry(cfg.Accounts)

	// Journal store
	store, health, closeStore, err := openStore(ctx, cfg, registry, logger)
	if err != nil {
		logger.Fatal("failed to open journal store", zap.Error(err))
	}
	defer closeStore()

	// Core services
	pnl := service.NewPnLCalculator(cfg.Trading.FeeRate)
	stats := service.NewStatisticsEngine(service.ParseFoldMode(cfg.Trading.FoldMode), logger)
	aggregation := usecase.NewAggregationService(store, registry, stats, logger)
	tp := usecase.NewTPService(store, registry, pnl, func() string { return uuid.New().String() }, logger)
	trading := usecase.NewTradingService(store, registry, pnl, aggregation, tp, usecase.TradeDefaults{
		Quantity: cfg.Trading.DefaultQuantity,
		Leverage: cfg.Trading.DefaultLeverage,
	}, logger)
	settings := usecase.NewSettingsService(store, registry, aggregation, trading.Locker(), logger)
	alerts := usecase.NewAlertService(trading, settings, registry, logger)

	// Execution venue. Public prices work without keys; orders and balances need them.
	venue := binance.NewVenue(
		binance.NewClient(cfg.Binance.APIKey, cfg.Binance.SecretKey, cfg.Binance.Testnet),
		cfg.Binance,
		logger,
	)
	var balances domain.BalanceProvider
	if cfg.Binance.APIKey != "" && cfg.Binance.SecretKey != "" {
		trading.SetVenue(venue)
		balances = venue
		logger.Info("[OK] execution venue enabled", zap.Bool("testnet", cfg.Binance.Testnet))
	} else {
		logger.Warn("binance keys not set, real exchange orders are disabled")
	}

	trading.SetNotifier(telegram.NewNotificationService(cfg.Telegram.BotToken, cfg.Telegram.ChatID))

	// Snapshot publisher
	var publisher domain.SnapshotPublisher = cache.NewLogPublisher(logger)
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		publisher = cache.NewSnapshotPublisher(rdb, cfg.Redis.Key, cfg.Redis.Channel, logger)
		logger.Info("[OK] snapshots published to redis", zap.String("channel", cfg.Redis.Channel))
	}
	trading.SetPublisher(publisher)
	settings.SetPublisher(publisher)

	if _, err := aggregation.SyncAll(ctx); err != nil {
		logger.Fatal("initial statistics sync failed", zap.Error(err))
	}
	logger.Info("[OK] statistics synchronized", zap.Int("journals", len(registry.JournalKeys())))

	// SL/TP monitor
	prices := service.NewMarketPriceService(venue, logger)
	monitor := service.NewMonitorService(trading, trading, prices, registry, logger)
	scheduler := infra.NewScheduler(monitor, cfg.Trading.MonitorSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("failed to start monitor scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// HTTP
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = uuid.New().String()
		logger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}
	auth := middleware.NewAuthenticator(jwtSecret, cfg.Auth.TokenTTL)
	alertHandler := delivery.NewAlertHandler(alerts, logger)

	api := delivery.NewEcho(&delivery.RouterConfig{
		Auth:              auth,
		AuthHandler:       delivery.NewAuthHandler(cfg.Auth.OperatorPasswordHash, auth, logger),
		StatisticsHandler: delivery.NewStatisticsHandler(aggregation, registry),
		TradeHandler:      delivery.NewTradeHandler(trading, registry, logger),
		SettingsHandler:   delivery.NewSettingsHandler(settings),
		OpsHandler:        delivery.NewOpsHandler(monitor, balances, logger),
		AlertHandler:      alertHandler,
		Logger:            logger,
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      delivery.NewRootRouter(api, alertHandler, health),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("[OK] tradeledger started",
		zap.String("addr", addr),
		zap.String("env", cfg.Server.Env),
		zap.String("journal_backend", cfg.Journal.Backend),
		zap.String("fold_mode", string(stats.Mode())),
		zap.String("monitor_schedule", cfg.Trading.MonitorSchedule),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("[OK] server exited gracefully")
}

// openStore builds the configured journal backend. The returned health check and close
// function are never nil.
func openStore(ctx context.Context, cfg *configs.Config, registry *service.AccountRegistry, logger *zap.Logger) (domain.JournalStore, func(context.Context) error, func(), error) {
	switch cfg.Journal.Backend {
	case "postgres":
		db, err := infra.NewDatabase(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.RunMigrations(ctx, db, logger); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		store := repository.NewPgJournalStore(db, registry, logger)
		keys, err := store.Keys(ctx)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		logger.Info("[OK] postgres journal store ready", zap.Int("journals", len(keys)))
		return store, db.Ping, db.Close, nil

	case "file", "":
		dir, err := filepath.Abs(cfg.Journal.Dir)
		if err != nil {
			return nil, nil, nil, err
		}
		store, err := repository.NewFileJournalStore(dir, registry, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("[OK] file journal store ready", zap.String("dir", dir))
		health := func(context.Context) error {
			_, err := os.Stat(dir)
			return err
		}
		return store, health, func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
}
