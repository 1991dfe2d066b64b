package model

import (
	"math"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds the ordered bars of one symbol on one interval.
type PriceSeries struct {
	Symbol    string
	Interval  Interval
	Bars      []OHLCV
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Closes returns the close column.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high column.
func (s *PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low column.
func (s *PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Times returns the timestamp column.
func (s *PriceSeries) Times() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Time
	}
	return out
}

// Naive drops the location of t, keeping its wall clock reading.
// All bar timestamps are compared in this form.
func Naive(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
}

// ValidateBars checks the OHLC ordering invariant and strictly increasing
// timestamps. On the first violation it returns the clean prefix together with
// a *MalformedBarError; the offending bar and everything after it are dropped.
func ValidateBars(bars []OHLCV) ([]OHLCV, error) {
	for i, b := range bars {
		if reason := barProblem(b); reason != "" {
			return bars[:i], &MalformedBarError{Index: i, Time: b.Time, Reason: reason}
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			reason := "timestamp not after previous bar"
			if b.Time.Equal(bars[i-1].Time) {
				reason = "duplicate timestamp"
			}
			return bars[:i], &MalformedBarError{Index: i, Time: b.Time, Reason: reason}
		}
	}
	return bars, nil
}

func barProblem(b OHLCV) string {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "non-finite value"
		}
	}
	switch {
	case b.Time.IsZero():
		return "missing timestamp"
	case b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0:
		return "non-positive price"
	case b.Volume < 0:
		return "negative volume"
	case b.High < b.Open || b.High < b.Close || b.High < b.Low:
		return "high below open/close/low"
	case b.Low > b.Open || b.Low > b.Close:
		return "low above open/close"
	}
	return ""
}
