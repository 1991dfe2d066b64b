package model

// StrategyParams configures the Darvas-box pipeline.
type StrategyParams struct {
	// MavilimW base lengths.
	FastMAL int `yaml:"fmal" json:"fmal"`
	SlowMAL int `yaml:"smal" json:"smal"`

	// Waddah Attar Explosion.
	Sensitivity        float64 `yaml:"sensitivity" json:"sensitivity"`
	FastLength         int     `yaml:"fast_length" json:"fast_length"`
	SlowLength         int     `yaml:"slow_length" json:"slow_length"`
	ChannelLength      int     `yaml:"channel_length" json:"channel_length"`
	BandMultiplier     float64 `yaml:"band_multiplier" json:"band_multiplier"`
	DeadZoneLength     int     `yaml:"dead_zone_length" json:"dead_zone_length"`
	DeadZoneMultiplier float64 `yaml:"dead_zone_multiplier" json:"dead_zone_multiplier"`

	// Darvas box lookback.
	BoxPeriod int `yaml:"boxp" json:"boxp"`

	FirstOccurrenceOnly bool `yaml:"first_occurrence_only" json:"first_occurrence_only"`
}

// TrendLag is how many bars back the trend line is read when composing signals.
const TrendLag = 2

// DefaultStrategyParams returns the stock parameter set.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		FastMAL:            3,
		SlowMAL:            5,
		Sensitivity:        150,
		FastLength:         20,
		SlowLength:         40,
		ChannelLength:      20,
		BandMultiplier:     2.0,
		DeadZoneLength:     100,
		DeadZoneMultiplier: 3.7,
		BoxPeriod:          20,
	}
}

// Validate rejects out-of-range values. Nothing is clamped.
func (p StrategyParams) Validate() error {
	switch {
	case p.FastMAL <= 0:
		return outOfRange("fmal", "must be positive, got %d", p.FastMAL)
	case p.SlowMAL <= 0:
		return outOfRange("smal", "must be positive, got %d", p.SlowMAL)
	case p.Sensitivity <= 0:
		return outOfRange("sensitivity", "must be positive, got %v", p.Sensitivity)
	case p.FastLength <= 0:
		return outOfRange("fast_length", "must be positive, got %d", p.FastLength)
	case p.SlowLength <= 0:
		return outOfRange("slow_length", "must be positive, got %d", p.SlowLength)
	case p.ChannelLength <= 0:
		return outOfRange("channel_length", "must be positive, got %d", p.ChannelLength)
	case p.BandMultiplier <= 0:
		return outOfRange("band_multiplier", "must be positive, got %v", p.BandMultiplier)
	case p.DeadZoneLength <= 0:
		return outOfRange("dead_zone_length", "must be positive, got %d", p.DeadZoneLength)
	case p.DeadZoneMultiplier <= 0:
		return outOfRange("dead_zone_multiplier", "must be positive, got %v", p.DeadZoneMultiplier)
	case p.BoxPeriod <= 0:
		return outOfRange("boxp", "must be positive, got %d", p.BoxPeriod)
	}
	return nil
}

// TrendLengths returns the six nested WMA window lengths of MavilimW.
func (p StrategyParams) TrendLengths() [6]int {
	return MavilimLengths(p.FastMAL, p.SlowMAL)
}

// MavilimLengths derives L1..L6 by repeated summation.
func MavilimLengths(fmal, smal int) [6]int {
	var l [6]int
	l[0], l[1] = fmal, smal
	for i := 2; i < len(l); i++ {
		l[i] = l[i-2] + l[i-1]
	}
	return l
}

// WarmupBars is the number of leading bars that cannot produce a defined signal.
func (p StrategyParams) WarmupBars() int {
	trend := 0
	for _, l := range p.TrendLengths() {
		trend += l - 1
	}
	trend += TrendLag
	w := trend
	if v := p.DeadZoneLength; v > w {
		w = v
	}
	if v := p.ChannelLength - 1; v > w {
		w = v
	}
	if v := p.BoxPeriod; v > w {
		w = v
	}
	return w
}
