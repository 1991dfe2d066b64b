package calculator

import (
	"fmt"
	"math"
)

// DarvasResult holds the box channel and its first-crossing breakouts.
type DarvasResult struct {
	ChannelHigh  []float64
	ChannelLow   []float64
	BreakoutUp   []bool
	BreakoutDown []bool
}

// DarvasBox computes the channel over the boxp bars preceding each bar and
// flags the first close outside it:
//
//	up[i]   = close[i] > high[i] && close[i-1] <= high[i]
//	down[i] = close[i] < low[i]  && close[i-1] >= low[i]
//
// where high/low are the channel columns, which already exclude bar i. A close
// that stays outside the channel does not fire again.
func DarvasBox(high, low, close []float64, boxp int) (*DarvasResult, error) {
	if len(high) != len(close) || len(low) != len(close) {
		return nil, fmt.Errorf("darvas: column length mismatch (high=%d low=%d close=%d)", len(high), len(low), len(close))
	}
	ch, err := PriorMax(high, boxp)
	if err != nil {
		return nil, fmt.Errorf("darvas high: %w", err)
	}
	cl, err := PriorMin(low, boxp)
	if err != nil {
		return nil, fmt.Errorf("darvas low: %w", err)
	}

	n := len(close)
	res := &DarvasResult{
		ChannelHigh:  ch,
		ChannelLow:   cl,
		BreakoutUp:   make([]bool, n),
		BreakoutDown: make([]bool, n),
	}
	for i := 1; i < n; i++ {
		if h := ch[i]; !math.IsNaN(h) {
			res.BreakoutUp[i] = close[i] > h && close[i-1] <= h
		}
		if l := cl[i]; !math.IsNaN(l) {
			res.BreakoutDown[i] = close[i] < l && close[i-1] >= l
		}
	}
	return res, nil
}
