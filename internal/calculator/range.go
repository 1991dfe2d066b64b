package calculator

import (
	"math"
)

// PriorMax returns, for each bar i, the highest value over the period bars
// before it (values[i-period .. i-1]). The current bar is excluded.
func PriorMax(values []float64, period int) ([]float64, error) {
	return priorExtreme(values, period, math.Max)
}

// PriorMin is the trailing minimum counterpart of PriorMax.
func PriorMin(values []float64, period int) ([]float64, error) {
	return priorExtreme(values, period, math.Min)
}

func priorExtreme(values []float64, period int, pick func(a, b float64) float64) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	out := NaNs(len(values))
	for i := period; i < len(values); i++ {
		if !window(values, i-1, period) {
			continue
		}
		ext := values[i-period]
		for j := i - period + 1; j < i; j++ {
			ext = pick(ext, values[j])
		}
		out[i] = ext
	}
	return out, nil
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close and stays NaN.
func TrueRange(high, low, close []float64) []float64 {
	out := NaNs(len(close))
	for i := 1; i < len(close); i++ {
		pc := close[i-1]
		tr := high[i] - low[i]
		tr = math.Max(tr, math.Abs(high[i]-pc))
		tr = math.Max(tr, math.Abs(low[i]-pc))
		out[i] = tr
	}
	return out
}
