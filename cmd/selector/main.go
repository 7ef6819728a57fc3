// Command selector runs one selection pass over the candidate pool and
// prints the resulting watchlist. Useful for checking the funnel before
// the pre-open cron run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"equityScalpBot/config"
	"equityScalpBot/internal/adapters/kite"
	"equityScalpBot/internal/adapters/logger"
	"equityScalpBot/internal/adapters/sqlite"
	"equityScalpBot/internal/ports"
	"equityScalpBot/internal/selector"
)

func main() {
	save := flag.Bool("save", false, "persist the watchlist to the database")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	ctx := context.Background()

	broker, err := kite.NewBroker(kite.Config{
		APIKey:      cfg.KiteAPIKey,
		AccessToken: cfg.KiteAccessToken,
	}, appLogger, ports.RealClock{})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Kite broker: %v", err)
	}

	pool, err := selector.LoadPool(cfg.PoolPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load candidate pool: %v", err)
	}

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

	wl, err := selector.New(selCfg, broker, appLogger).Run(ctx, pool)
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}

	fmt.Printf("Pool %d, qualified %d, selected %d\n\n", wl.PoolSize, wl.Qualified, len(wl.Entries))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Symbol\tSector\tScore\tWinRate\tPnL\tPF\tTrades\tTrail%\t")
	for _, e := range wl.Entries {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.2f\t%.2f\t%d\t%.2f\t\n",
			e.Symbol, e.Sector, e.Score, e.WinRate, e.PnL, e.ProfitFactor, e.TradeCount, e.TrailPct)
	}
	w.Flush()

	if *save {
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to open database: %v", err)
		}
		defer repo.Close()
		if err := repo.SaveWatchlist(ctx, wl); err != nil {
			log.Fatalf("Failed to save watchlist: %v", err)
		}
		fmt.Println("\nWatchlist saved.")
	}
}
