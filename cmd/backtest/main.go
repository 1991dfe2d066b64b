package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"BoxSentinel/internal/chart"
	"BoxSentinel/internal/collector"
	"BoxSentinel/internal/config"
	"BoxSentinel/internal/model"
	"BoxSentinel/internal/notifier"
	"BoxSentinel/internal/strategy"
)

func main() {
	symbolFlag := flag.String("symbol", "", "Ticker symbol to backtest")
	intervalFlag := flag.String("interval", "", "Bar interval (1d, 1wk, 1h, ...); defaults to the config")
	startFlag := flag.String("start", "", "First day, YYYY-MM-DD")
	endFlag := flag.String("end", "", "Last day, YYYY-MM-DD (inclusive)")
	configFlag := flag.String("config", "configs/config.yaml", "Path to the YAML config")
	firstOnlyFlag := flag.Bool("first-only", false, "Keep only the first buy and the first sell")
	chartFlag := flag.String("chart", "", "Write an SVG chart to this path")
	jsonFlag := flag.Bool("json", false, "Print the summary and signal table as JSON")
	notifyFlag := flag.Bool("notify", false, "Send the report to Telegram")
	verboseFlag := flag.Bool("v", false, "Log fetch and pipeline details to stderr")
	flag.Parse()

	if *symbolFlag == "" {
		log.Fatal("No symbol specified. Use -symbol")
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	logger := zap.NewNop()
	if *verboseFlag {
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("init logger: %v", err)
		}
	}
	defer logger.Sync()

	ivName := cfg.Backtest.Interval
	if *intervalFlag != "" {
		ivName = *intervalFlag
	}
	interval, err := model.ParseInterval(ivName)
	if err != nil {
		log.Fatalf("Invalid interval: %v", err)
	}
	start, err := parseDay(*startFlag)
	if err != nil {
		log.Fatalf("Invalid -start: %v", err)
	}
	end, err := parseDay(*endFlag)
	if err != nil {
		log.Fatalf("Invalid -end: %v", err)
	}

	params := cfg.Backtest.Params
	if *firstOnlyFlag {
		params.FirstOccurrenceOnly = true
	}

	fetcher := collector.NewFetcher(collector.Source{
		CSVDir:   cfg.DataSource.CSVDir,
		BaseURL:  cfg.DataSource.BaseURL,
		APIKey:   cfg.DataSource.APIKey,
		Proxy:    cfg.Proxy,
		CacheDir: cfg.DataSource.CacheDir,
		CacheTTL: cfg.DataSource.CacheTTL,
	}, logger)
	runner := strategy.NewRunner(collector.NewCollector(fetcher, logger), logger)
	runner.Params = params
	runner.Annualization = cfg.Backtest.Annualization
	runner.Lookback = cfg.Lookback()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := runner.Run(ctx, strategy.Request{Symbol: *symbolFlag, Interval: interval, Start: start, End: end})
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			*model.BacktestResult
			Table []model.TableRow `json:"table"`
		}{res, res.Table()}); err != nil {
			log.Fatalf("Encode result: %v", err)
		}
	} else {
		printReport(res)
	}

	if *chartFlag != "" {
		svg, err := chart.RenderBacktest(res, chart.Options{})
		if err != nil {
			log.Fatalf("Render chart: %v", err)
		}
		if err := os.WriteFile(*chartFlag, svg, 0o644); err != nil {
			log.Fatalf("Write chart: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Chart written to %s\n", *chartFlag)
	}

	if *notifyFlag {
		if !cfg.TelegramEnabled() {
			log.Fatal("Telegram is not configured")
		}
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		if err := tn.SendWithRetry(ctx, notifier.FormatBacktestReport(res), 3); err != nil {
			log.Fatalf("Send report: %v", err)
		}
	}
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func printReport(res *model.BacktestResult) {
	s := res.Summary
	fmt.Printf("Darvas Box backtest %s (%s), run %s\n", res.Symbol, res.Interval, res.RunID)
	if n := len(res.Bars); n > 0 {
		fmt.Printf("Bars: %d  %s -> %s\n", n, res.Bars[0].Time.Format("2006-01-02"), res.Bars[n-1].Time.Format("2006-01-02"))
	}
	if s.FirstDefinedIndex < 0 {
		fmt.Println("Not enough history: no bar has every indicator defined.")
		return
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Cumulative return\t%.2f%%\n", s.CumulativeReturn*100)
	fmt.Fprintf(w, "Buy & hold\t%.2f%%\n", s.BuyAndHoldReturn*100)
	fmt.Fprintf(w, "Max drawdown\t%.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "Sharpe\t%.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "Signals\t%d buy / %d sell\n", s.BuySignals, s.SellSignals)
	fmt.Fprintf(w, "Closed trades\t%d (win rate %.1f%%)\n", s.ClosedTrades, s.WinRate*100)
	fmt.Fprintf(w, "Exposure\t%.1f%%\n", s.Exposure*100)
	fmt.Fprintf(w, "First defined bar\t%d\n", s.FirstDefinedIndex)
	w.Flush()

	if len(s.Trades) > 0 {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENTRY\tPRICE\tEXIT\tPRICE\tRETURN\t")
		for _, t := range s.Trades {
			exit := t.ExitTime.Format("2006-01-02")
			if t.Open {
				exit += " (open)"
			}
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%.2f\t%+.2f%%\t\n",
				t.EntryTime.Format("2006-01-02"), t.EntryPrice, exit, t.ExitPrice, t.Return*100)
		}
		w.Flush()
	}
	if side, ok := res.LastSignal(); ok {
		fmt.Printf("\nSignal on the last bar: %s\n", side)
	}
}
