// Command backtest replays a candle CSV through the live strategy and
// prints the trade-by-trade result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/risk"
	"equityScalpBot/internal/strategy/backtesting"
	"equityScalpBot/internal/strategy/confirm"
	"equityScalpBot/internal/strategy/indicators"
	"equityScalpBot/internal/utils"
)

func main() {
	var (
		file     = flag.String("file", "", "candle CSV file (required)")
		symbol   = flag.String("symbol", "", "symbol label for the report")
		trailPct = flag.Float64("trail", 0.5, "trailing offset percentage (0 disables)")
	)
	flag.Parse()
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	candles, err := utils.ReadCandlesFromCSV(*file)
	if err != nil {
		log.Fatalf("Error reading candles: %v", err)
	}
	sym := *symbol
	if sym == "" && len(candles) > 0 {
		sym = candles[0].Symbol
	}

	res, err := backtesting.Run(context.Background(), candles, backtesting.Config{
		Symbol:     sym,
		Indicators: indicators.DefaultConfig(),
		Confirm:    confirm.DefaultConfig(),
		Risk: risk.Config{
			RiskBudget:       200,
			StopFraction:     0.003,
			TargetFraction:   0.006,
			MaxPositionValue: 5000,
			MaxDailyLoss:     500,
			MaxTradesPerDay:  10,
			MaxOpenPositions: 3,
		},
		Session:  domain.DefaultSession(),
		TrailPct: *trailPct,
	})
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	fmt.Printf("%s: %d candles, %d trades\n\n", sym, len(candles), res.TotalTrades)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Dir\tEntry\tExit\tQty\tPnL\tReason\tEntered\tExited\t")
	for _, t := range res.Trades {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%d\t%.2f\t%s\t%s\t%s\t\n",
			t.Direction, t.EntryPrice, t.ExitPrice, t.Quantity, t.PnL, t.Reason,
			t.EntryTime.In(domain.IST).Format(time.DateTime),
			t.ExitTime.In(domain.IST).Format(time.DateTime))
	}
	w.Flush()

	fmt.Printf("\nWin rate: %.1f%% (%d/%d)\n", res.WinRate, res.WinningTrades, res.TotalTrades)
	fmt.Printf("Total PnL: %.2f (gross +%.2f / -%.2f)\n", res.TotalPnL, res.GrossProfit, res.GrossLoss)
	fmt.Printf("Profit factor: %.2f\n", res.ProfitFactor)
}
