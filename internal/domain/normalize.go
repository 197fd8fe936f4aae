package domain

import (
	"github.com/paulmach/orb"

	"github.com/terralens/prospect-fusion/internal/raster"
)

// ratioEpsilon keeps the normalized-difference denominator finite when both
// bands are zero, as they are on placeholder layers. The resulting constant
// 0.5 reads as "no signal either way".
const ratioEpsilon = 1e-6

// NormalizeRatio computes the normalized difference (a-b)/(a+b+eps) and
// shifts it from [-1, 1] onto the unit prospectivity scale.
func NormalizeRatio(band string, a, b *raster.Grid) *raster.Grid {
	return raster.Zip(band, a, b, func(av, bv float64) float64 {
		idx := (av - bv) / (av + bv + ratioEpsilon)
		return raster.Clamp01((idx + 1) / 2)
	})
}

// NormalizeDivisor scales values by a fixed physical full-scale divisor and
// clamps onto the unit interval. The divisor must be positive; spec
// validation rejects configurations where it is not.
func NormalizeDivisor(band string, g *raster.Grid, divisor float64) *raster.Grid {
	return g.Map(band, func(v float64) float64 {
		return raster.Clamp01(v / divisor)
	})
}

// NormalizePercentile stretches values linearly between the 5th and 95th
// percentile of an in-AOI sample taken at stride. When the sample is empty
// or the stretch has zero width, the layer degrades to all-zero rather than
// failing the run.
func NormalizePercentile(band string, g *raster.Grid, aoi orb.Polygon, stride int) *raster.Grid {
	sample := g.SampleWithin(aoi, stride)
	p5, ok5 := raster.Percentile(sample, 5)
	p95, ok95 := raster.Percentile(sample, 95)
	if !ok5 || !ok95 || p95-p5 <= 0 {
		return raster.New(band, g.Width, g.Height, g.Bound)
	}
	span := p95 - p5
	return g.Map(band, func(v float64) float64 {
		return raster.Clamp01((v - p5) / span)
	})
}
