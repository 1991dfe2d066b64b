package model

import (
	"math"
	"time"
)

// Side labels the direction of a signal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// IndicatorFrame holds the computed indicator columns, aligned 1:1 with the
// source bars. Undefined entries are NaN.
type IndicatorFrame struct {
	Times         []time.Time
	Close         []float64
	Trend         []float64
	MomentumUp    []float64
	MomentumDown  []float64
	ExplosionBand []float64
	DeadZone      []float64
	ChannelHigh   []float64
	ChannelLow    []float64
	BreakoutUp    []bool
	BreakoutDown  []bool
}

// Len returns the number of rows.
func (f *IndicatorFrame) Len() int { return len(f.Close) }

// SignalRow is the composed decision for one bar, with the intermediate
// booleans that justify it. Defined is false while any input is still warming up.
type SignalRow struct {
	Index        int       `json:"index"`
	Time         time.Time `json:"time"`
	Defined      bool      `json:"defined"`
	BreakoutUp   bool      `json:"breakout_up"`
	BreakoutDown bool      `json:"breakout_down"`
	TrendUp      bool      `json:"trend_up"`
	TrendDown    bool      `json:"trend_down"`
	MomentumBuy  bool      `json:"momentum_buy"`
	MomentumSell bool      `json:"momentum_sell"`
	Buy          bool      `json:"buy"`
	Sell         bool      `json:"sell"`
}

// Trade is one closed (or still open) long round trip.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   time.Time `json:"exit_time,omitempty"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
	Return     float64   `json:"return"`
	Open       bool      `json:"open"`
}

// EquityPoint is one bar of the evaluated strategy.
type EquityPoint struct {
	Time           time.Time `json:"time"`
	Position       int       `json:"position"`
	StrategyReturn float64   `json:"strategy_return"`
	Equity         float64   `json:"equity"`
	Drawdown       float64   `json:"drawdown"`
}

// PerformanceSummary aggregates one run.
type PerformanceSummary struct {
	CumulativeReturn  float64 `json:"cumulative_return"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	BuyAndHoldReturn  float64 `json:"buy_and_hold_return"`
	BuySignals        int     `json:"buy_signals"`
	SellSignals       int     `json:"sell_signals"`
	Entries           int     `json:"entries"`
	Exits             int     `json:"exits"`
	ClosedTrades      int     `json:"closed_trades"`
	WinRate           float64 `json:"win_rate"`
	Exposure          float64 `json:"exposure"`
	Bars              int     `json:"bars"`
	FirstDefinedIndex int     `json:"first_defined_index"`
	Trades            []Trade `json:"trades"`
}

// BacktestResult is everything a run produces. It lives in memory only.
type BacktestResult struct {
	RunID       string             `json:"run_id"`
	Symbol      string             `json:"symbol"`
	Interval    Interval           `json:"interval"`
	Params      StrategyParams     `json:"params"`
	Bars        []OHLCV            `json:"-"`
	Frame       *IndicatorFrame    `json:"-"`
	Signals     []SignalRow        `json:"-"`
	Equity      []EquityPoint      `json:"-"`
	Summary     PerformanceSummary `json:"summary"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// LastSignal returns the side fired on the final bar, if any.
func (r *BacktestResult) LastSignal() (Side, bool) {
	if len(r.Signals) == 0 {
		return "", false
	}
	last := r.Signals[len(r.Signals)-1]
	switch {
	case last.Buy:
		return SideBuy, true
	case last.Sell:
		return SideSell, true
	}
	return "", false
}

// TableRow is the JSON-safe export of one bar: nil means undefined.
type TableRow struct {
	Time          time.Time `json:"time"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        float64   `json:"volume"`
	Trend         *float64  `json:"mavilimw"`
	MomentumUp    *float64  `json:"wae_trend_up"`
	MomentumDown  *float64  `json:"wae_trend_down"`
	ExplosionBand *float64  `json:"wae_explosion"`
	DeadZone      *float64  `json:"wae_dead_zone"`
	ChannelHigh   *float64  `json:"darvas_high"`
	ChannelLow    *float64  `json:"darvas_low"`
	SignalRow
	Position int     `json:"position"`
	Equity   float64 `json:"equity"`
}

// Table flattens the run into one row per bar.
func (r *BacktestResult) Table() []TableRow {
	rows := make([]TableRow, len(r.Bars))
	for i, b := range r.Bars {
		row := TableRow{
			Time: b.Time, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		}
		if r.Frame != nil && i < r.Frame.Len() {
			row.Trend = defined(r.Frame.Trend[i])
			row.MomentumUp = defined(r.Frame.MomentumUp[i])
			row.MomentumDown = defined(r.Frame.MomentumDown[i])
			row.ExplosionBand = defined(r.Frame.ExplosionBand[i])
			row.DeadZone = defined(r.Frame.DeadZone[i])
			row.ChannelHigh = defined(r.Frame.ChannelHigh[i])
			row.ChannelLow = defined(r.Frame.ChannelLow[i])
		}
		if i < len(r.Signals) {
			row.SignalRow = r.Signals[i]
		}
		if i < len(r.Equity) {
			row.Position = r.Equity[i].Position
			row.Equity = r.Equity[i].Equity
		}
		rows[i] = row
	}
	return rows
}

func defined(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
