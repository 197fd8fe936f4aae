package raster

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/stat"
)

// SampleValues returns every stride-th cell value in scan order. A stride of
// 1 returns every cell; larger strides coarsen the sample the same way every
// run, so statistics derived from it are deterministic.
func (g *Grid) SampleValues(stride int) []float64 {
	if stride < 1 {
		stride = 1
	}
	out := make([]float64, 0, len(g.Values)/stride+1)
	for i := 0; i < len(g.Values); i += stride {
		out = append(out, g.Values[i])
	}
	return out
}

// SampleWithin returns cell values sampled at stride in both axes, keeping
// only cells whose centers fall inside the polygon.
func (g *Grid) SampleWithin(aoi orb.Polygon, stride int) []float64 {
	if stride < 1 {
		stride = 1
	}
	out := make([]float64, 0, len(g.Values)/(stride*stride)+1)
	for y := 0; y < g.Height; y += stride {
		for x := 0; x < g.Width; x += stride {
			if planar.PolygonContains(aoi, g.CellCenter(x, y)) {
				out = append(out, g.At(x, y))
			}
		}
	}
	return out
}

// Percentile returns the p-th percentile (p in [0, 100]) of vals, or false
// when vals is empty. The input slice is not modified.
func Percentile(vals []float64, p float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	return stat.Quantile(p/100, stat.Empirical, sorted, nil), true
}

// Median returns the 50th percentile of vals, or false when vals is empty.
func Median(vals []float64) (float64, bool) {
	return Percentile(vals, 50)
}
