package calculator

import (
	"fmt"
	"math"
)

// WAEConfig holds the Waddah Attar Explosion inputs.
type WAEConfig struct {
	Sensitivity        float64
	FastLength         int
	SlowLength         int
	ChannelLength      int
	BandMultiplier     float64
	DeadZoneLength     int
	DeadZoneMultiplier float64
}

// WAEResult holds the four WAE output columns.
type WAEResult struct {
	MomentumUp    []float64
	MomentumDown  []float64
	ExplosionBand []float64
	DeadZone      []float64
}

// WAE computes the Waddah Attar Explosion oscillator.
//
//	delta         = (macd - macd[-1]) * sensitivity, macd = EMA(fast) - EMA(slow)
//	momentumUp    = max(delta, 0); momentumDown = max(-delta, 0)
//	explosionBand = upper - lower Bollinger band = 2 * popStd(close, channel) * mult
//	deadZone      = SMA(trueRange, deadZoneLength) * deadZoneMultiplier
func WAE(high, low, close []float64, cfg WAEConfig) (*WAEResult, error) {
	if len(high) != len(close) || len(low) != len(close) {
		return nil, fmt.Errorf("wae: column length mismatch (high=%d low=%d close=%d)", len(high), len(low), len(close))
	}
	fast, err := EMA(close, cfg.FastLength)
	if err != nil {
		return nil, fmt.Errorf("wae fast ema: %w", err)
	}
	slow, err := EMA(close, cfg.SlowLength)
	if err != nil {
		return nil, fmt.Errorf("wae slow ema: %w", err)
	}

	n := len(close)
	res := &WAEResult{
		MomentumUp:    NaNs(n),
		MomentumDown:  NaNs(n),
		ExplosionBand: NaNs(n),
	}
	for i := 1; i < n; i++ {
		macd := fast[i] - slow[i]
		prev := fast[i-1] - slow[i-1]
		if math.IsNaN(macd) || math.IsNaN(prev) {
			continue
		}
		delta := (macd - prev) * cfg.Sensitivity
		res.MomentumUp[i] = math.Max(delta, 0)
		res.MomentumDown[i] = math.Max(-delta, 0)
	}

	dev, err := StdDev(close, cfg.ChannelLength)
	if err != nil {
		return nil, fmt.Errorf("wae channel: %w", err)
	}
	for i, d := range dev {
		if math.IsNaN(d) {
			continue
		}
		res.ExplosionBand[i] = 2 * d * cfg.BandMultiplier
	}

	tr := TrueRange(high, low, close)
	dz, err := SMA(tr, cfg.DeadZoneLength)
	if err != nil {
		return nil, fmt.Errorf("wae dead zone: %w", err)
	}
	for i := range dz {
		dz[i] *= cfg.DeadZoneMultiplier
	}
	res.DeadZone = dz
	return res, nil
}

// MomentumPasses reports whether a momentum value clears both the explosion
// band and the dead zone. Undefined inputs never pass.
func MomentumPasses(momentum, explosion, deadZone float64) bool {
	if math.IsNaN(momentum) || math.IsNaN(explosion) || math.IsNaN(deadZone) {
		return false
	}
	return momentum > explosion && momentum > deadZone
}
