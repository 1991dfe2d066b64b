package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"BoxSentinel/internal/api"
	"BoxSentinel/internal/collector"
	"BoxSentinel/internal/config"
	"BoxSentinel/internal/model"
	"BoxSentinel/internal/notifier"
	"BoxSentinel/internal/portfolio"
	"BoxSentinel/internal/recorder"
	"BoxSentinel/internal/scheduler"
	"BoxSentinel/internal/screener"
	"BoxSentinel/internal/strategy"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config validation", zap.Error(err))
	}
	logger.Info("BoxSentinel starting", zap.String("config", cfgPath), zap.Strings("watchlist", cfg.Watchlist))

	// Init fetcher
	fetcher := collector.NewFetcher(collector.Source{
		CSVDir:   cfg.DataSource.CSVDir,
		BaseURL:  cfg.DataSource.BaseURL,
		APIKey:   cfg.DataSource.APIKey,
		Proxy:    cfg.Proxy,
		CacheDir: cfg.DataSource.CacheDir,
		CacheTTL: cfg.DataSource.CacheTTL,
	}, logger)
	logger.Info("data source", zap.String("fetcher", fetcher.Name()))
	col := collector.NewCollector(fetcher, logger)

	interval, _ := model.ParseInterval(cfg.Backtest.Interval)
	runner := strategy.NewRunner(col, logger)
	runner.Params = cfg.Backtest.Params
	runner.Annualization = cfg.Backtest.Annualization
	runner.Lookback = cfg.Lookback()

	vs := screener.NewVolumeScreener(col, logger)
	vs.Ratio = cfg.Screener.Ratio
	vs.WindowDays = cfg.Screener.WindowDays

	book, err := portfolio.NewBook(cfg.Portfolio.StateFile, logger)
	if err != nil {
		logger.Fatal("init portfolio", zap.Error(err))
	}

	// Init notifier
	var n notifier.Notifier = notifier.NoopNotifier{Logger: logger}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		n = tn
	} else {
		logger.Warn("telegram not configured, notifications are only logged")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, runner, vs, book, n, rec, logger)
	sched.Watchlist = cfg.Watchlist
	sched.ScreenSymbols = cfg.Screener.Symbols
	sched.Interval = interval
	sched.SendChart = cfg.Backtest.SendChart
	if err := sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.VolumeCron, cfg.Schedule.SummaryCron); err != nil {
		logger.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	// Start API
	h := api.NewHandler(runner, vs, book, rec, n, logger)
	h.Watchlist = cfg.Watchlist
	h.ScreenSymbols = cfg.Screener.Symbols
	h.Interval = interval
	srv := api.NewServer(h, cfg.API.Addr, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("api server", zap.Error(err))
			cancel()
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, scanning watchlist now")
		go sched.RunScanNow()
	}

	logger.Info("BoxSentinel is running, press Ctrl+C to stop")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutdown signal received, stopping")
	case <-ctx.Done():
	}
	cancel()
	if err := srv.Shutdown(); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
	logger.Info("BoxSentinel stopped")
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
