package collector

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"BoxSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.OHLCV // per symbol; generated when absent
	Err   error
	Calls atomic.Int32
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol string, interval model.Interval, start, end time.Time) ([]model.OHLCV, error) {
	m.Calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	return GenerateBars(m.Price, 300, interval), nil
}

// GenerateBars builds a deterministic wavy series ending today.
func GenerateBars(basePrice float64, count int, interval model.Interval) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	step := 24 * time.Hour
	switch interval {
	case model.Interval1wk:
		step = 7 * 24 * time.Hour
	case model.Interval1h:
		step = time.Hour
	}
	last := model.Naive(time.Now()).Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.001*float64(i-count/2) + 0.03*math.Sin(float64(i)/7))
		bars[i] = model.OHLCV{
			Time:   last.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + 5000*float64(i%10),
		}
	}
	return bars
}

// Collector fetches and validates price history.
type Collector struct {
	Fetcher Fetcher
	Logger  *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Logger: logger}
}

// Collect fetches bars, normalises timestamps, then validates the series.
// Fetchers return bars in ascending order; a malformed or out-of-order bar is
// an error and nothing is repaired.
func (c *Collector) Collect(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) (*model.PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("collect: empty symbol")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, fmt.Errorf("collect %s: end %s before start %s", symbol,
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	bars, err := c.Fetcher.FetchBars(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s from %s: %w", symbol, interval, c.Fetcher.Name(), err)
	}
	bars = append([]model.OHLCV(nil), bars...)
	for i := range bars {
		bars[i].Time = model.Naive(bars[i].Time)
	}

	if _, err := model.ValidateBars(bars); err != nil {
		c.Logger.Warn("rejecting series", zap.String("symbol", symbol), zap.String("interval", string(interval)),
			zap.Int("bars", len(bars)), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", symbol, interval, err)
	}
	return &model.PriceSeries{
		Symbol:    symbol,
		Interval:  interval,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}
