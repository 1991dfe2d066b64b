package performance

import (
	"fmt"
	"math"

	"BoxSentinel/internal/calculator"
	"BoxSentinel/internal/model"
)

// Positions forward-fills the signal rows into a long/flat series:
// a buy goes long, a later sell goes flat, and the book is flat before the
// first event.
func Positions(signals []model.SignalRow) []int {
	pos := make([]int, len(signals))
	cur := 0
	for i, s := range signals {
		if s.Buy {
			cur = 1
		}
		if s.Sell {
			cur = 0
		}
		pos[i] = cur
	}
	return pos
}

// FirstDefined returns the index of the first fully-defined signal row, or -1.
func FirstDefined(signals []model.SignalRow) int {
	for i, s := range signals {
		if s.Defined {
			return i
		}
	}
	return -1
}

// Evaluate turns the composed signals into a position series and scores it.
// The position is applied with a one-bar lag: a signal on bar i earns the
// return of bar i+1 onwards. Bars up to the first defined row are excluded
// from the statistics.
func Evaluate(bars []model.OHLCV, signals []model.SignalRow, annualization float64) (model.PerformanceSummary, []model.EquityPoint, error) {
	if len(bars) != len(signals) {
		return model.PerformanceSummary{}, nil, fmt.Errorf("evaluate: %d bars but %d signal rows", len(bars), len(signals))
	}
	if annualization <= 0 {
		return model.PerformanceSummary{}, nil, fmt.Errorf("%w: annualization factor must be positive, got %v",
			model.ErrParameterOutOfRange, annualization)
	}

	n := len(bars)
	pos := Positions(signals)
	first := FirstDefined(signals)

	sum := model.PerformanceSummary{FirstDefinedIndex: first}
	for _, s := range signals {
		if s.Buy {
			sum.BuySignals++
		}
		if s.Sell {
			sum.SellSignals++
		}
	}

	curve := make([]model.EquityPoint, n)
	var returns []float64
	curveValues := []float64{1}
	equity, peak, exposed := 1.0, 1.0, 0
	for i := 0; i < n; i++ {
		pt := model.EquityPoint{Time: bars[i].Time, Position: pos[i], Equity: 1}
		if first >= 0 && i > first {
			r := float64(pos[i-1]) * (bars[i].Close/bars[i-1].Close - 1)
			if pos[i-1] == 1 {
				exposed++
			}
			returns = append(returns, r)
			equity *= 1 + r
			peak = math.Max(peak, equity)
			pt.StrategyReturn = r
			pt.Equity = equity
			pt.Drawdown = equity/peak - 1
			curveValues = append(curveValues, equity)
		}
		curve[i] = pt
	}

	sum.Bars = len(returns)
	sum.MaxDrawdown = MaxDrawdown(curveValues)
	if len(returns) > 0 {
		sum.CumulativeReturn = equity - 1
		sum.Exposure = float64(exposed) / float64(len(returns))
		sum.BuyAndHoldReturn = bars[n-1].Close/bars[first].Close - 1
	}
	sum.SharpeRatio = Sharpe(returns, annualization)
	sum.Trades, sum.Entries, sum.Exits = trades(bars, pos)

	wins := 0
	for _, t := range sum.Trades {
		if t.Open {
			continue
		}
		sum.ClosedTrades++
		if t.Return > 0 {
			wins++
		}
	}
	if sum.ClosedTrades > 0 {
		sum.WinRate = float64(wins) / float64(sum.ClosedTrades)
	}
	return sum, curve, nil
}

// Sharpe returns mean/stddev*sqrt(annualization); 0 when the deviation is zero
// or there are fewer than two returns.
func Sharpe(returns []float64, annualization float64) float64 {
	sd := calculator.SampleStdDev(returns)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return calculator.Mean(returns) / sd * math.Sqrt(annualization)
}

// MaxDrawdown returns min(equity/runningPeak - 1) of an equity curve, 0 if empty.
func MaxDrawdown(equity []float64) float64 {
	dd, peak := 0.0, math.Inf(-1)
	for _, e := range equity {
		peak = math.Max(peak, e)
		if peak > 0 {
			dd = math.Min(dd, e/peak-1)
		}
	}
	return dd
}

// trades pairs entries and exits at the close of the signal bar.
// A position still open on the last bar is marked to the final close.
func trades(bars []model.OHLCV, pos []int) (out []model.Trade, entries, exits int) {
	var open *model.Trade
	prev := 0
	for i, p := range pos {
		switch {
		case p == 1 && prev == 0:
			entries++
			open = &model.Trade{EntryTime: bars[i].Time, EntryPrice: bars[i].Close}
		case p == 0 && prev == 1 && open != nil:
			exits++
			open.ExitTime = bars[i].Time
			open.ExitPrice = bars[i].Close
			open.Return = open.ExitPrice/open.EntryPrice - 1
			out = append(out, *open)
			open = nil
		}
		prev = p
	}
	if open != nil {
		last := bars[len(bars)-1]
		open.ExitTime = last.Time
		open.ExitPrice = last.Close
		open.Return = open.ExitPrice/open.EntryPrice - 1
		open.Open = true
		out = append(out, *open)
	}
	return out, entries, exits
}
