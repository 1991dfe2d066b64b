package screener

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"BoxSentinel/internal/collector"
	"BoxSentinel/internal/model"
)

const (
	DefaultWindowDays = 7
	DefaultRatio      = 1.1
)

// VolumeScreener flags symbols whose mean daily volume over the last window
// grew against the window before it.
type VolumeScreener struct {
	Collector   *collector.Collector
	WindowDays  int
	Ratio       float64
	Concurrency int
	Logger      *zap.Logger

	now func() time.Time
}

// NewVolumeScreener creates a screener with the default window and ratio.
func NewVolumeScreener(c *collector.Collector, logger *zap.Logger) *VolumeScreener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolumeScreener{
		Collector:   c,
		WindowDays:  DefaultWindowDays,
		Ratio:       DefaultRatio,
		Concurrency: 4,
		Logger:      logger,
		now:         time.Now,
	}
}

// Screen checks every symbol and returns the surges sorted by ratio, highest
// first. Symbols that fail to load are logged and skipped.
func (s *VolumeScreener) Screen(ctx context.Context, symbols []string) ([]model.VolumeSurge, error) {
	if s.WindowDays <= 0 {
		return nil, fmt.Errorf("%w: window_days must be positive, got %d", model.ErrParameterOutOfRange, s.WindowDays)
	}
	if s.Ratio <= 0 {
		return nil, fmt.Errorf("%w: ratio must be positive, got %v", model.ErrParameterOutOfRange, s.Ratio)
	}

	today := model.Naive(s.now()).Truncate(24 * time.Hour)
	window := time.Duration(s.WindowDays) * 24 * time.Hour
	split := today.Add(-window)
	start := split.Add(-window)

	var (
		mu     sync.Mutex
		surges []model.VolumeSurge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Concurrency))
	for _, sym := range lo.Uniq(symbols) {
		sym := sym
		g.Go(func() error {
			series, err := s.Collector.Collect(gctx, sym, model.Interval1d, start, today)
			if err != nil {
				s.Logger.Warn("volume screen skipped symbol", zap.String("symbol", sym), zap.Error(err))
				return nil
			}
			surge, ok := Compare(series.Bars, split, s.Ratio)
			if !ok {
				return nil
			}
			surge.Symbol = series.Symbol
			mu.Lock()
			surges = append(surges, surge)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(surges, func(i, j int) bool {
		if surges[i].Ratio != surges[j].Ratio {
			return surges[i].Ratio > surges[j].Ratio
		}
		return surges[i].Symbol < surges[j].Symbol
	})
	s.Logger.Info("volume screen done", zap.Int("symbols", len(symbols)), zap.Int("surges", len(surges)))
	return surges, nil
}

// Compare splits bars at split: bars before it form the previous window,
// bars at or after it the current one. It reports a surge when the current
// mean volume is at least ratio times a positive previous mean.
func Compare(bars []model.OHLCV, split time.Time, ratio float64) (model.VolumeSurge, bool) {
	prev := lo.Filter(bars, func(b model.OHLCV, _ int) bool { return b.Time.Before(split) })
	cur := lo.Filter(bars, func(b model.OHLCV, _ int) bool { return !b.Time.Before(split) })
	if len(prev) == 0 || len(cur) == 0 {
		return model.VolumeSurge{}, false
	}
	vol := func(b model.OHLCV) float64 { return b.Volume }
	prevMean := lo.SumBy(prev, vol) / float64(len(prev))
	curMean := lo.SumBy(cur, vol) / float64(len(cur))
	if prevMean <= 0 || curMean < ratio*prevMean {
		return model.VolumeSurge{}, false
	}
	return model.VolumeSurge{
		PreviousVolume: prevMean,
		CurrentVolume:  curMean,
		Ratio:          curMean / prevMean,
	}, true
}
