package domain

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/terralens/prospect-fusion/internal/raster"
)

// BuildComposite stacks weighted signal layers into a target composite:
// clamp01(sum(w_i * layer_i)). Weights are applied exactly as configured,
// with no renormalization; a sum below 1 expresses deliberate caution and a
// sum above 1 deliberate optimism, and silently rescaling either would
// change the geologist's intent. Accumulation runs in sorted layer-name
// order so results are bit-identical across runs.
//
// Weight keys must reference layers present in the map; spec validation
// enforces that before a run starts.
func BuildComposite(name string, layers map[string]*raster.Grid, weights map[string]float64) *raster.Grid {
	names := make([]string, 0, len(weights))
	for n := range weights {
		names = append(names, n)
	}
	sort.Strings(names)

	ref := layers[names[0]]
	acc := make([]float64, len(ref.Values))
	for _, n := range names {
		floats.AddScaled(acc, weights[n], layers[n].Values)
	}

	out := raster.New(name, ref.Width, ref.Height, ref.Bound)
	for i, v := range acc {
		out.Values[i] = raster.Clamp01(v)
	}
	return out
}

// WeightSum returns the total weight mass of a target. Sums outside
// [0.9, 1.1] are reported as configuration warnings, never errors.
func WeightSum(weights map[string]float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum
}

// FuseComposites averages the per-target composites into the combined
// prospectivity surface, clamped onto the unit interval. Returns nil for an
// empty input; callers always run with at least one target.
func FuseComposites(composites []*raster.Grid) *raster.Grid {
	if len(composites) == 0 {
		return nil
	}
	ref := composites[0]
	acc := make([]float64, len(ref.Values))
	for _, c := range composites {
		floats.Add(acc, c.Values)
	}
	scale := 1 / float64(len(composites))

	out := raster.New("combined", ref.Width, ref.Height, ref.Bound)
	for i, v := range acc {
		out.Values[i] = raster.Clamp01(v * scale)
	}
	return out
}
