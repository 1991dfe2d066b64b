package calculator

import (
	"fmt"

	"BoxSentinel/internal/model"
)

// MavilimW computes the MavilimW trend line: six chained WMAs of closes with
// lengths fmal, smal and their running Fibonacci-style sums
// (3, 5, 8, 13, 21, 34 for the defaults). Undefined values propagate through
// the chain, so the first defined entry sits at the sum of (L-1) over all stages.
func MavilimW(closes []float64, fmal, smal int) ([]float64, error) {
	if fmal <= 0 || smal <= 0 {
		return nil, fmt.Errorf("%w: mavilimw lengths must be positive, got fmal=%d smal=%d",
			model.ErrParameterOutOfRange, fmal, smal)
	}
	out := closes
	for stage, l := range model.MavilimLengths(fmal, smal) {
		next, err := WMA(out, l)
		if err != nil {
			return nil, fmt.Errorf("mavilimw stage %d: %w", stage+1, err)
		}
		out = next
	}
	return out, nil
}
