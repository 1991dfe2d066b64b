package chart

import (
	"math"
	"strings"
	"testing"
	"time"

	"BoxSentinel/internal/model"
)

func sampleResult(n int) *model.BacktestResult {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := &model.BacktestResult{
		Symbol:   "AAPL",
		Interval: model.Interval1d,
		Frame: &model.IndicatorFrame{
			Close:       make([]float64, n),
			Trend:       make([]float64, n),
			ChannelHigh: make([]float64, n),
			ChannelLow:  make([]float64, n),
		},
		Signals: make([]model.SignalRow, n),
	}
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		res.Bars = append(res.Bars, model.OHLCV{Time: t0.AddDate(0, 0, i), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c})
		res.Frame.Close[i] = c
		res.Frame.Trend[i] = math.NaN()
		res.Frame.ChannelHigh[i] = c + 2
		res.Frame.ChannelLow[i] = c - 2
		if i >= 3 {
			res.Frame.Trend[i] = c - 1
		}
	}
	if n > 8 {
		res.Signals[5].Buy = true
		res.Signals[8].Sell = true
	}
	return res
}

func TestRenderBacktest(t *testing.T) {
	svg, err := RenderBacktest(sampleResult(10), Options{})
	if err != nil {
		t.Fatal(err)
	}
	s := string(svg)
	if !strings.HasPrefix(s, "<?xml") || !strings.HasSuffix(strings.TrimSpace(s), "</svg>") {
		t.Fatal("not a complete svg document")
	}
	if got := strings.Count(s, `class="signal"`); got != 2 {
		t.Errorf("expected 2 signal markers, got %d", got)
	}
	if got := strings.Count(s, "<polyline"); got != 3 {
		t.Errorf("expected 3 overlay lines, got %d", got)
	}
	if !strings.Contains(s, "AAPL 1d") {
		t.Error("missing title")
	}
}

func TestRenderBacktest_TrimsToLastBars(t *testing.T) {
	svg, err := RenderBacktest(sampleResult(10), Options{LastBars: 4})
	if err != nil {
		t.Fatal(err)
	}
	// bars 6..9 only: the buy on bar 5 falls outside
	if got := strings.Count(string(svg), `class="signal"`); got != 1 {
		t.Errorf("expected 1 marker after trimming, got %d", got)
	}
}

func TestRenderBacktest_TooFewBars(t *testing.T) {
	if _, err := RenderBacktest(sampleResult(1), Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSegments(t *testing.T) {
	nan := math.NaN()
	got := segments([]float64{nan, 1, 2, nan, 3, nan, 4, 5, 6})
	if len(got) != 2 || len(got[0]) != 2 || len(got[1]) != 3 {
		t.Fatalf("segments = %v", got)
	}
}
