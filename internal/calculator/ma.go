package calculator

import (
	"fmt"
	"math"

	"BoxSentinel/internal/model"
)

func checkPeriod(period int) error {
	if period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %d", model.ErrParameterOutOfRange, period)
	}
	return nil
}

// NaNs returns a slice of n undefined values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// window reports whether values[i-period+1..i] are all defined.
func window(values []float64, i, period int) bool {
	if i-period+1 < 0 {
		return false
	}
	for j := i - period + 1; j <= i; j++ {
		if math.IsNaN(values[j]) {
			return false
		}
	}
	return true
}

// SMA computes the rolling simple moving average of values.
// Entry i is NaN until period consecutive defined inputs end at i.
func SMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	out := NaNs(len(values))
	for i := range values {
		if !window(values, i, period) {
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(period)
	}
	return out, nil
}

// WMA computes the linearly weighted moving average: weights 1..period,
// the newest value weighted highest, normalised by the sum of weights.
func WMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	norm := float64(period*(period+1)) / 2
	out := NaNs(len(values))
	for i := range values {
		if !window(values, i, period) {
			continue
		}
		sum := 0.0
		for k := 0; k < period; k++ {
			sum += values[i-period+1+k] * float64(k+1)
		}
		out[i] = sum / norm
	}
	return out, nil
}

// EMA computes the exponential moving average with alpha = 2/(span+1),
// seeded with the first defined value (no bias adjustment).
func EMA(values []float64, span int) ([]float64, error) {
	if err := checkPeriod(span); err != nil {
		return nil, err
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := NaNs(len(values))
	prev := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out, nil
}

// StdDev computes the rolling population standard deviation.
func StdDev(values []float64, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	out := NaNs(len(values))
	for i := range values {
		if !window(values, i, period) {
			continue
		}
		mean := 0.0
		for j := i - period + 1; j <= i; j++ {
			mean += values[j]
		}
		mean /= float64(period)
		ss := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period))
	}
	return out, nil
}
