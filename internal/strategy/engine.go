package strategy

import (
	"fmt"
	"time"

	"BoxSentinel/internal/calculator"
	"BoxSentinel/internal/model"
	"BoxSentinel/internal/performance"
)

// BuildFrame runs the three indicators over the series.
func BuildFrame(series *model.PriceSeries, p model.StrategyParams) (*model.IndicatorFrame, error) {
	closes, highs, lows := series.Closes(), series.Highs(), series.Lows()

	trend, err := calculator.MavilimW(closes, p.FastMAL, p.SlowMAL)
	if err != nil {
		return nil, fmt.Errorf("mavilimw: %w", err)
	}
	wae, err := calculator.WAE(highs, lows, closes, calculator.WAEConfig{
		Sensitivity:        p.Sensitivity,
		FastLength:         p.FastLength,
		SlowLength:         p.SlowLength,
		ChannelLength:      p.ChannelLength,
		BandMultiplier:     p.BandMultiplier,
		DeadZoneLength:     p.DeadZoneLength,
		DeadZoneMultiplier: p.DeadZoneMultiplier,
	})
	if err != nil {
		return nil, err
	}
	box, err := calculator.DarvasBox(highs, lows, closes, p.BoxPeriod)
	if err != nil {
		return nil, err
	}

	return &model.IndicatorFrame{
		Times:         series.Times(),
		Close:         closes,
		Trend:         trend,
		MomentumUp:    wae.MomentumUp,
		MomentumDown:  wae.MomentumDown,
		ExplosionBand: wae.ExplosionBand,
		DeadZone:      wae.DeadZone,
		ChannelHigh:   box.ChannelHigh,
		ChannelLow:    box.ChannelLow,
		BreakoutUp:    box.BreakoutUp,
		BreakoutDown:  box.BreakoutDown,
	}, nil
}

// Run executes the whole pipeline over one series. Parameters are checked
// before any computation and a malformed series is refused outright; a
// series too short to warm up yields all-undefined rows and zeroed stats.
func Run(series *model.PriceSeries, p model.StrategyParams, overrides map[string]float64) (*model.BacktestResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	factor, err := series.Interval.AnnualizationFactor(overrides)
	if err != nil {
		return nil, err
	}
	if _, err := model.ValidateBars(series.Bars); err != nil {
		return nil, fmt.Errorf("%s: %w", series.Symbol, err)
	}

	frame, err := BuildFrame(series, p)
	if err != nil {
		return nil, err
	}
	signals := ComposeSignals(frame, p.FirstOccurrenceOnly)
	summary, equity, err := performance.Evaluate(series.Bars, signals, factor)
	if err != nil {
		return nil, err
	}

	return &model.BacktestResult{
		Symbol:      series.Symbol,
		Interval:    series.Interval,
		Params:      p,
		Bars:        series.Bars,
		Frame:       frame,
		Signals:     signals,
		Equity:      equity,
		Summary:     summary,
		GeneratedAt: time.Now(),
	}, nil
}
