package strategy

import (
	"math"

	"BoxSentinel/internal/calculator"
	"BoxSentinel/internal/model"
)

// ComposeSignals combines the indicator columns into one decision per bar.
//
//	buy[i]  = breakoutUp[i]   && close[i] > trend[i-2] && momentumUp[i]   clears band and dead zone
//	sell[i] = breakoutDown[i] && close[i] < trend[i-2] && momentumDown[i] clears band and dead zone
//
// A row is Defined only when the lagged trend, the momentum columns, the
// band, the dead zone and the channel all exist.
func ComposeSignals(f *model.IndicatorFrame, firstOnly bool) []model.SignalRow {
	n := f.Len()
	rows := make([]model.SignalRow, n)
	for i := 0; i < n; i++ {
		row := model.SignalRow{Index: i}
		if i < len(f.Times) {
			row.Time = f.Times[i]
		}
		if !rowDefined(f, i) {
			rows[i] = row
			continue
		}
		trend := f.Trend[i-model.TrendLag]
		row.Defined = true
		row.BreakoutUp = f.BreakoutUp[i]
		row.BreakoutDown = f.BreakoutDown[i]
		row.TrendUp = f.Close[i] > trend
		row.TrendDown = f.Close[i] < trend
		row.MomentumBuy = calculator.MomentumPasses(f.MomentumUp[i], f.ExplosionBand[i], f.DeadZone[i])
		row.MomentumSell = calculator.MomentumPasses(f.MomentumDown[i], f.ExplosionBand[i], f.DeadZone[i])
		row.Buy = row.BreakoutUp && row.TrendUp && row.MomentumBuy
		row.Sell = row.BreakoutDown && row.TrendDown && row.MomentumSell
		rows[i] = row
	}
	if firstOnly {
		keepFirst(rows)
	}
	return rows
}

func rowDefined(f *model.IndicatorFrame, i int) bool {
	if i < model.TrendLag {
		return false
	}
	for _, v := range []float64{
		f.Trend[i-model.TrendLag],
		f.MomentumUp[i], f.MomentumDown[i],
		f.ExplosionBand[i], f.DeadZone[i],
		f.ChannelHigh[i], f.ChannelLow[i],
	} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// keepFirst clears every buy after the first one, and likewise for sells.
func keepFirst(rows []model.SignalRow) {
	seenBuy, seenSell := false, false
	for i := range rows {
		if rows[i].Buy {
			if seenBuy {
				rows[i].Buy = false
			}
			seenBuy = true
		}
		if rows[i].Sell {
			if seenSell {
				rows[i].Sell = false
			}
			seenSell = true
		}
	}
}
