package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"equityScalpBot/config"
	"equityScalpBot/internal/adapters/kite"
	"equityScalpBot/internal/adapters/logger"
	"equityScalpBot/internal/adapters/paper"
	"equityScalpBot/internal/adapters/sqlite"
	"equityScalpBot/internal/app"
	"equityScalpBot/internal/ports"
	"equityScalpBot/internal/position"
	"equityScalpBot/internal/risk"
	"equityScalpBot/internal/selector"
	"equityScalpBot/internal/server"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize logger
	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize repository
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize broker
	clock := ports.RealClock{}
	var broker ports.Broker
	if cfg.PaperTrading {
		broker = paper.NewBroker(clock)
		appLogger.Info(ctx, "Paper broker initialized")
	} else {
		broker, err = kite.NewBroker(kite.Config{
			APIKey:      cfg.KiteAPIKey,
			AccessToken: cfg.KiteAccessToken,
		}, appLogger, clock)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize Kite broker")
			log.Fatalf("FATAL: Failed to initialize Kite broker: %v", err)
		}
		appLogger.Info(ctx, "Kite broker initialized")
	}

	// 5. Risk manager, position store, watchlist store
	riskMgr, err := risk.NewManager(cfg.Risk, appLogger, clock)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize risk manager")
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}
	store := position.NewStore(appLogger)
	watch := selector.NewStore()

	// 6. Universe selector
	selCfg := selector.DefaultConfig()
	selCfg.Interval = cfg.Interval
	selCfg.LookbackDays = cfg.LookbackDays
	selCfg.MinAvgVolume = cfg.MinAvgVolume
	selCfg.ATRPctMin = cfg.ATRPctMin
	selCfg.ATRPctMax = cfg.ATRPctMax
	selCfg.MinWinRate = cfg.MinWinRate
	selCfg.MinTrades = cfg.MinTrades
	selCfg.MinProfitFactor = cfg.MinProfitFactor
	selCfg.SectorCap = cfg.SectorCap
	selCfg.WatchlistSize = cfg.WatchlistSize
	selCfg.SymbolTimeout = cfg.SymbolTimeout
	selCfg.Indicators = cfg.Indicators
	selCfg.Confirm = cfg.Confirm
	selCfg.Risk = cfg.Risk
	sel := selector.New(selCfg, broker, appLogger)

	// 7. Trading service
	service, err := app.NewTradingService(app.Config{
		Mode:            cfg.Mode,
		Interval:        cfg.Interval,
		ScanInterval:    cfg.ScanInterval,
		MonitorInterval: cfg.MonitorInterval,
		SymbolTimeout:   cfg.SymbolTimeout,
		DefaultTrailPct: cfg.DefaultTrailPct,
		Session:         selCfg.Session,
		Indicators:      cfg.Indicators,
		Confirm:         cfg.Confirm,
		Conversion:      cfg.Conversion,
	}, broker, repo, repo, store, riskMgr, watch, appLogger, clock)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}

	// 8. Scheduler and HTTP control surface
	scheduler := app.NewScheduler(service, sel, cfg.PoolPath, appLogger)
	httpServer := server.New(cfg.HTTPAddr, service, appLogger)

	// 9. Run until interrupted
	if err := service.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to start trading service")
		log.Fatalf("FATAL: Failed to start trading service: %v", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to start scheduler")
		log.Fatalf("FATAL: Failed to start scheduler: %v", err)
	}
	go func() {
		if err := httpServer.Start(ctx); err != nil {
			appLogger.Error(ctx, err, "HTTP server exited with error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	appLogger.Info(ctx, "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, err, "HTTP server shutdown failed")
	}
	scheduler.Stop(ctx)
	service.Stop(ctx)
	appLogger.Info(ctx, "Application finished gracefully.")
}
