package domain

import (
	"gonum.org/v1/gonum/stat"

	"github.com/terralens/prospect-fusion/internal/raster"
)

// ConfidenceSurface scores per-pixel model confidence as consensus times
// availability. Consensus is clamp01(1 - population stddev) across the
// target composites at that pixel: targets that agree on a cell, high or
// low, make it trustworthy, while disagreement erodes it. Multiplying by
// the availability fraction then caps confidence at what the input coverage
// can support, so the result never exceeds either factor.
//
// With a single composite the spread is zero and confidence reduces to the
// availability fraction.
func ConfidenceSurface(composites []*raster.Grid, availability *raster.Grid) *raster.Grid {
	out := raster.New("confidence", availability.Width, availability.Height, availability.Bound)
	vals := make([]float64, len(composites))
	for i := range out.Values {
		var spread float64
		if len(composites) > 0 {
			for j, c := range composites {
				vals[j] = c.Values[i]
			}
			spread = stat.PopStdDev(vals, nil)
		}
		consensus := raster.Clamp01(1 - spread)
		out.Values[i] = consensus * availability.Values[i]
	}
	return out
}
