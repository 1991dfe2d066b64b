package model

import (
	"fmt"
	"strings"
)

// Interval is a bar timeframe label as used by the data providers.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

// tradingDays is the number of sessions per year used for annualization.
const tradingDays = 252

var annualization = map[Interval]float64{
	Interval1m:  tradingDays * 24 * 60,
	Interval5m:  tradingDays * 24 * 12,
	Interval15m: tradingDays * 24 * 4,
	Interval30m: tradingDays * 24 * 2,
	Interval1h:  tradingDays * 24,
	Interval1d:  tradingDays,
	Interval1wk: 52,
	Interval1mo: 12,
}

// ParseInterval normalises common spellings ("60m", "1D", "1w") to an Interval.
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1m":
		return Interval1m, nil
	case "5m":
		return Interval5m, nil
	case "15m":
		return Interval15m, nil
	case "30m":
		return Interval30m, nil
	case "1h", "60m":
		return Interval1h, nil
	case "", "1d", "d", "daily":
		return Interval1d, nil
	case "1wk", "1w", "w", "weekly":
		return Interval1wk, nil
	case "1mo", "mo", "monthly":
		return Interval1mo, nil
	}
	return "", fmt.Errorf("unknown interval %q", s)
}

// AnnualizationFactor returns the number of bars per year for the interval.
// Entries in overrides win over the built-in table.
func (iv Interval) AnnualizationFactor(overrides map[string]float64) (float64, error) {
	if v, ok := overrides[string(iv)]; ok {
		if v <= 0 {
			return 0, outOfRange("annualization", "for %s must be positive, got %v", iv, v)
		}
		return v, nil
	}
	if v, ok := annualization[iv]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("no annualization factor for interval %q", iv)
}
