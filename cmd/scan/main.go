package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"seidefi/internal/cli"
	"seidefi/internal/config"
	"seidefi/internal/svc"
	"seidefi/pkg/fundingarb"
	"seidefi/pkg/journal"
)

const (
	arbScanInterval   = 5 * time.Minute // Funding-rate opportunity scan interval
	pnlInterval       = time.Minute     // Open-position PnL refresh interval
	rebalanceInterval = 2 * time.Minute // AMM range check interval
	apiTimeout        = 10 * time.Second
	shutdownTimeout   = 10 * time.Second

	journalDir = "journal/scan"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting background scanner...")

	configPath := "etc/seidefi.yaml"
	appCfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("[main] Warning: Failed to load app config: %v", err)
		log.Printf("[main] Using default configuration")
		appCfg = &config.Config{Env: "test"}
		appCfg.TTL = config.CacheTTL{Short: 10, Medium: 60, Long: 300}
		appCfg.Arb.NotionalUSD = 1000
		appCfg.Rebalance.Threshold = 0.02
		appCfg.Rebalance.RangeWidth = 0.1
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	sctx := svc.NewServiceContext(*appCfg)

	symbols := appCfg.Arb.Symbols
	if len(symbols) == 0 {
		symbols = []string{"BTC", "ETH"}
	}
	log.Printf("  - Arb symbols: %v", symbols)
	log.Printf("  - Intervals: scan=%s, pnl=%s, rebalance=%s", arbScanInterval, pnlInterval, rebalanceInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	audit := journal.NewWriter(journalDir)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runArbScanner(ctx, sctx.FundingArb, audit, symbols, appCfg.Arb.NotionalUSD)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runPnLMonitor(ctx, sctx.FundingArb)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runRebalanceSweep(ctx, sctx, appCfg.Rebalance)
	}()

	log.Println("[main] Scanner started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping tasks...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[main] All tasks stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}

	log.Println("[main] Scanner stopped")
}

// runArbScanner periodically scans funding rates for arbitrage spreads.
func runArbScanner(ctx context.Context, engine *fundingarb.Engine, audit *journal.Writer, symbols []string, notionalUSD float64) {
	ticker := time.NewTicker(arbScanInterval)
	defer ticker.Stop()

	scanOnce(ctx, engine, audit, symbols, notionalUSD)

	for {
		select {
		case <-ctx.Done():
			log.Println("[arb] Stopping funding scanner")
			return
		case <-ticker.C:
			scanOnce(ctx, engine, audit, symbols, notionalUSD)
		}
	}
}

func scanOnce(parentCtx context.Context, engine *fundingarb.Engine, audit *journal.Writer, symbols []string, notionalUSD float64) {
	if parentCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
	defer cancel()

	start := time.Now()
	opps, err := engine.Scan(ctx, symbols, notionalUSD)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("[arb.scan] [ERROR] %v, took %dms", err, elapsed.Milliseconds())
		return
	}
	log.Printf("[arb.scan] [OK] %d opportunities, took %dms", len(opps), elapsed.Milliseconds())
	for i, opp := range opps {
		if i >= 3 {
			break
		}
		log.Printf("  - %s: spread=%.4f%% annual=$%.2f risk=%s confidence=%.2f",
			opp.Symbol, opp.Spread*100, opp.AnnualProfit, opp.Risk, opp.Confidence)
	}
	if len(opps) > 0 {
		best := opps[0]
		if _, jerr := audit.Write(&journal.Entry{
			Message: "funding scan",
			Text:    fmt.Sprintf("%d opportunities, best %s", len(opps), best.Symbol),
			Content: map[string]any{
				"symbol":        best.Symbol,
				"spread":        best.Spread,
				"annual_profit": best.AnnualProfit,
				"risk":          string(best.Risk),
				"confidence":    best.Confidence,
			},
			Success: true,
		}); jerr != nil {
			log.Printf("[arb.scan] [WARN] journal write: %v", jerr)
		}
	}
}

// runPnLMonitor keeps open arb positions marked and closes stale ones.
func runPnLMonitor(ctx context.Context, engine *fundingarb.Engine) {
	ticker := time.NewTicker(pnlInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[pnl] Stopping PnL monitor")
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			callCtx, cancel := context.WithTimeout(ctx, apiTimeout)
			closed := engine.UpdatePnL(callCtx)
			cancel()
			for _, id := range closed {
				log.Printf("[pnl] [OK] auto-closed position %s", id)
			}
		}
	}
}

// runRebalanceSweep checks every tracked AMM position against its range.
func runRebalanceSweep(ctx context.Context, sctx *svc.ServiceContext, defaults config.RebalanceConf) {
	ticker := time.NewTicker(rebalanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[rebalance] Stopping rebalance sweep")
			return
		case <-ticker.C:
			sweepOnce(ctx, sctx, defaults)
		}
	}
}

func sweepOnce(parentCtx context.Context, sctx *svc.ServiceContext, defaults config.RebalanceConf) {
	if parentCtx.Err() != nil {
		return
	}
	for _, symbol := range sctx.AMM.Symbols() {
		base := symbol
		if i := strings.IndexByte(base, '/'); i > 0 {
			base = base[:i]
		}

		ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
		quote, err := sctx.Oracle.GetPrice(ctx, base)
		cancel()
		if err != nil {
			log.Printf("[rebalance.%s] [ERROR] price lookup: %v", symbol, err)
			continue
		}

		moved, err := sctx.AMM.Rebalance(symbol, quote.Price, defaults.FeeDelta, defaults.SlippageDelta, defaults.Threshold)
		if err != nil {
			log.Printf("[rebalance.%s] [ERROR] %v", symbol, err)
			continue
		}
		if moved {
			log.Printf("[rebalance.%s] [OK] range recentered at %.2f", symbol, quote.Price)
		}
	}
}
