package calculator

import (
	"errors"
	"math"
	"testing"

	"BoxSentinel/internal/model"
)

func closeEnough(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func assertSeries(t *testing.T, name string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if !closeEnough(got[i], want[i]) {
			t.Fatalf("%s[%d] = %v, want %v", name, i, got[i], want[i])
		}
	}
}

// synthCloses is a deterministic wavy uptrend.
func synthCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 0.3*float64(i) + 4*math.Sin(float64(i)/5)
	}
	return out
}

func TestWMA_HandComputed(t *testing.T) {
	got, err := WMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatal(err)
	}
	nan := math.NaN()
	assertSeries(t, "wma", got, []float64{nan, nan, 14.0 / 6, 20.0 / 6, 26.0 / 6})
}

func TestWMA_UndefinedPropagates(t *testing.T) {
	nan := math.NaN()
	got, err := WMA([]float64{nan, nan, 1, 2, 3, 4}, 3)
	if err != nil {
		t.Fatal(err)
	}
	assertSeries(t, "wma", got, []float64{nan, nan, nan, nan, 14.0 / 6, 20.0 / 6})
}

func TestMovingAverages_RejectBadPeriod(t *testing.T) {
	for name, fn := range map[string]func([]float64, int) ([]float64, error){
		"sma": SMA, "wma": WMA, "ema": EMA, "std": StdDev, "priormax": PriorMax,
	} {
		if _, err := fn([]float64{1, 2, 3}, 0); !errors.Is(err, model.ErrParameterOutOfRange) {
			t.Errorf("%s: expected ErrParameterOutOfRange, got %v", name, err)
		}
	}
}

func TestMavilimW_MatchesExplicitChain(t *testing.T) {
	lengths := model.MavilimLengths(3, 5)
	want := [6]int{3, 5, 8, 13, 21, 34}
	if lengths != want {
		t.Fatalf("lengths = %v, want %v", lengths, want)
	}

	for _, n := range []int{40, 120} {
		closes := synthCloses(n)
		expected := closes
		for _, l := range want {
			var err error
			expected, err = WMA(expected, l)
			if err != nil {
				t.Fatal(err)
			}
		}
		got, err := MavilimW(closes, 3, 5)
		if err != nil {
			t.Fatal(err)
		}
		assertSeries(t, "mavilimw", got, expected)
	}
}

func TestMavilimW_FirstDefinedIndex(t *testing.T) {
	got, err := MavilimW(synthCloses(120), 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	// (3-1)+(5-1)+(8-1)+(13-1)+(21-1)+(34-1) = 78
	for i := 0; i < 78; i++ {
		if !math.IsNaN(got[i]) {
			t.Fatalf("expected undefined at %d, got %v", i, got[i])
		}
	}
	if math.IsNaN(got[78]) {
		t.Fatal("expected first defined value at index 78")
	}
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	got, err := EMA([]float64{10, 20, 20}, 3)
	if err != nil {
		t.Fatal(err)
	}
	// alpha = 0.5
	assertSeries(t, "ema", got, []float64{10, 15, 17.5})
}

func TestStdDev_Population(t *testing.T) {
	got, err := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !closeEnough(got[7], 2) {
		t.Fatalf("std = %v, want 2", got[7])
	}
	if !math.IsNaN(got[6]) {
		t.Fatalf("expected undefined before the window fills, got %v", got[6])
	}
}

func TestPriorMax_ExcludesCurrentBar(t *testing.T) {
	got, err := PriorMax([]float64{1, 5, 2, 9, 3}, 2)
	if err != nil {
		t.Fatal(err)
	}
	nan := math.NaN()
	assertSeries(t, "priormax", got, []float64{nan, nan, 5, 5, 9})
}

func TestTrueRange(t *testing.T) {
	high := []float64{10, 12, 11}
	low := []float64{9, 11, 8}
	cl := []float64{9.5, 11.5, 10}
	got := TrueRange(high, low, cl)
	// bar1: max(1, |12-9.5|, |11-9.5|) = 2.5; bar2: max(3, |11-11.5|, |8-11.5|) = 3.5
	assertSeries(t, "tr", got, []float64{math.NaN(), 2.5, 3.5})
}

func flatThenBreakout() (high, low, cl []float64) {
	for i := 0; i < 30; i++ {
		high = append(high, 11)
		low = append(low, 9)
		cl = append(cl, 10)
	}
	// five bars holding above the old ceiling, never above the breakout bar's high
	for _, c := range []float64{12.0, 12.1, 12.2, 12.3, 12.4} {
		high = append(high, 12.5)
		low = append(low, 11.5)
		cl = append(cl, c)
	}
	return high, low, cl
}

func TestDarvasBox_FiresOncePerCrossing(t *testing.T) {
	high, low, cl := flatThenBreakout()
	res, err := DarvasBox(high, low, cl, 20)
	if err != nil {
		t.Fatal(err)
	}
	var fired []int
	for i, up := range res.BreakoutUp {
		if up {
			fired = append(fired, i)
		}
	}
	if len(fired) != 1 || fired[0] != 30 {
		t.Fatalf("breakoutUp fired at %v, want only [30]", fired)
	}
	for i, down := range res.BreakoutDown {
		if down {
			t.Fatalf("unexpected breakoutDown at %d", i)
		}
	}
	if !closeEnough(res.ChannelHigh[30], 11) {
		t.Fatalf("channel high before breakout = %v, want 11", res.ChannelHigh[30])
	}
	if !math.IsNaN(res.ChannelHigh[19]) || math.IsNaN(res.ChannelHigh[20]) {
		t.Fatal("channel should become defined exactly after boxp prior bars")
	}
}

func TestDarvasBox_Breakdown(t *testing.T) {
	high, low, cl := flatThenBreakout()
	high, low, cl = high[:30], low[:30], cl[:30]
	high = append(high, 9.2, 8.8)
	low = append(low, 8.0, 8.1)
	cl = append(cl, 8.5, 8.3)
	res, err := DarvasBox(high, low, cl, 20)
	if err != nil {
		t.Fatal(err)
	}
	if !res.BreakoutDown[30] || res.BreakoutDown[31] {
		t.Fatalf("breakdown flags = %v/%v, want true/false", res.BreakoutDown[30], res.BreakoutDown[31])
	}
}

func TestDarvasBox_CeilingIncludesPreviousBar(t *testing.T) {
	var high, low, cl []float64
	for i := 0; i < 29; i++ {
		high = append(high, 11)
		low = append(low, 9)
		cl = append(cl, 10)
	}
	// spike bar: high far above its close
	high, low, cl = append(high, 15), append(low, 9.5), append(cl, 10.5)
	// clears the old flat ceiling but not the spike
	high, low, cl = append(high, 12.5), append(low, 11), append(cl, 12)
	// clears the spike
	high, low, cl = append(high, 16.5), append(low, 12), append(cl, 16)

	res, err := DarvasBox(high, low, cl, 20)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		i       int
		ceiling float64
		up      bool
	}{
		{29, 11, false},
		{30, 15, false},
		{31, 15, true},
	}
	for _, tt := range tests {
		if !closeEnough(res.ChannelHigh[tt.i], tt.ceiling) {
			t.Errorf("channelHigh[%d] = %v, want %v", tt.i, res.ChannelHigh[tt.i], tt.ceiling)
		}
		if res.BreakoutUp[tt.i] != tt.up {
			t.Errorf("breakoutUp[%d] = %v, want %v", tt.i, res.BreakoutUp[tt.i], tt.up)
		}
	}
}

func TestWAE_WarmupAndSymmetry(t *testing.T) {
	n := 150
	cl := synthCloses(n)
	high := make([]float64, n)
	low := make([]float64, n)
	for i, c := range cl {
		high[i] = c + 1
		low[i] = c - 1
	}
	cfg := WAEConfig{Sensitivity: 150, FastLength: 20, SlowLength: 40, ChannelLength: 20,
		BandMultiplier: 2, DeadZoneLength: 100, DeadZoneMultiplier: 3.7}
	res, err := WAE(high, low, cl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(res.DeadZone[99]) || math.IsNaN(res.DeadZone[100]) {
		t.Fatal("dead zone must be defined from bar 100")
	}
	if !math.IsNaN(res.ExplosionBand[18]) || math.IsNaN(res.ExplosionBand[19]) {
		t.Fatal("explosion band must be defined from bar channelLength-1")
	}
	if !math.IsNaN(res.MomentumUp[0]) {
		t.Fatal("momentum has no previous macd on bar 0")
	}
	for i := 1; i < n; i++ {
		if res.MomentumUp[i] > 0 && res.MomentumDown[i] > 0 {
			t.Fatalf("bar %d: up and down momentum both positive", i)
		}
	}
	dev, _ := StdDev(cl, 20)
	if !closeEnough(res.ExplosionBand[50], 4*dev[50]) {
		t.Fatalf("explosion band = %v, want %v", res.ExplosionBand[50], 4*dev[50])
	}
}

func TestMomentumPasses(t *testing.T) {
	tests := []struct {
		m, e, d float64
		want    bool
	}{
		{5, 4, 3, true},
		{5, 6, 3, false},
		{5, 4, 6, false},
		{5, math.NaN(), 3, false},
		{5, 4, math.NaN(), false},
		{math.NaN(), 4, 3, false},
	}
	for _, tt := range tests {
		if got := MomentumPasses(tt.m, tt.e, tt.d); got != tt.want {
			t.Errorf("MomentumPasses(%v, %v, %v) = %v, want %v", tt.m, tt.e, tt.d, got, tt.want)
		}
	}
}

func TestSampleStdDev_Degenerate(t *testing.T) {
	if got := SampleStdDev([]float64{1}); got != 0 {
		t.Fatalf("single value std = %v", got)
	}
	if got := SampleStdDev([]float64{0.5, 0.5, 0.5}); got != 0 {
		t.Fatalf("constant std = %v", got)
	}
}
