package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"BoxSentinel/internal/collector"
	"BoxSentinel/internal/model"
)

// Request describes one backtest. Zero Start/End leave the window open;
// a nil Params uses the runner's defaults.
type Request struct {
	Symbol   string
	Interval model.Interval
	Start    time.Time
	End      time.Time
	Params   *model.StrategyParams
}

// Runner fetches history and runs the pipeline on it.
type Runner struct {
	Collector     *collector.Collector
	Params        model.StrategyParams
	Annualization map[string]float64
	// Lookback bounds the window when a request leaves Start empty.
	Lookback    time.Duration
	Concurrency int
	Logger      *zap.Logger
}

// NewRunner creates a Runner with the stock parameters.
func NewRunner(c *collector.Collector, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Collector:   c,
		Params:      model.DefaultStrategyParams(),
		Concurrency: 4,
		Logger:      logger,
	}
}

// Run backtests one symbol.
func (r *Runner) Run(ctx context.Context, req Request) (*model.BacktestResult, error) {
	p := r.Params
	if req.Params != nil {
		p = *req.Params
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if req.Interval == "" {
		req.Interval = model.Interval1d
	}
	if req.Start.IsZero() && r.Lookback > 0 {
		end := req.End
		if end.IsZero() {
			end = time.Now()
		}
		req.Start = end.Add(-r.Lookback)
	}

	runID := uuid.NewString()
	log := r.Logger.With(zap.String("run_id", runID),
		zap.String("symbol", req.Symbol), zap.String("interval", string(req.Interval)))

	started := time.Now()
	series, err := r.Collector.Collect(ctx, req.Symbol, req.Interval, req.Start, req.End)
	if err != nil {
		log.Warn("collect failed", zap.Error(err))
		return nil, err
	}
	if warmup := p.WarmupBars(); series.Len() <= warmup {
		log.Warn("series shorter than indicator warmup, no signal can fire",
			zap.Int("bars", series.Len()), zap.Int("warmup", warmup))
	}
	res, err := Run(series, p, r.Annualization)
	if err != nil {
		log.Warn("backtest failed", zap.Int("bars", series.Len()), zap.Error(err))
		return nil, err
	}
	res.RunID = runID
	log.Info("backtest done",
		zap.Int("bars", series.Len()),
		zap.Int("buy_signals", res.Summary.BuySignals),
		zap.Int("sell_signals", res.Summary.SellSignals),
		zap.Float64("cumulative_return", res.Summary.CumulativeReturn),
		zap.Duration("elapsed", time.Since(started)))
	return res, nil
}

// ScanReport is the outcome of a watchlist scan.
type ScanReport struct {
	RunID    string            `json:"run_id"`
	Interval model.Interval    `json:"interval"`
	Hits     []model.ScanHit   `json:"hits"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// Scan backtests every symbol concurrently and reports those whose last bar
// fired. A failing symbol is recorded in Failed and does not stop the others.
func (r *Runner) Scan(ctx context.Context, symbols []string, interval model.Interval) (*ScanReport, error) {
	report := &ScanReport{RunID: uuid.NewString(), Interval: interval, Failed: map[string]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for _, sym := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		g.Go(func() error {
			res, err := r.Run(gctx, Request{Symbol: sym, Interval: interval})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				report.Failed[sym] = err.Error()
				return nil
			}
			if side, ok := res.LastSignal(); ok {
				report.Hits = append(report.Hits, model.ScanHit{Symbol: sym, Side: side, Result: res})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	sort.Slice(report.Hits, func(i, j int) bool { return report.Hits[i].Symbol < report.Hits[j].Symbol })
	r.Logger.Info("scan done", zap.String("run_id", report.RunID),
		zap.Int("symbols", len(symbols)), zap.Int("hits", len(report.Hits)), zap.Int("failed", len(report.Failed)))
	return report, nil
}
