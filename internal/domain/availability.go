package domain

import "github.com/terralens/prospect-fusion/internal/raster"

// LayerAvailability is one row of the per-source availability report.
type LayerAvailability struct {
	SourceID  string `json:"source_id"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// AvailabilityReport lists every layer's availability in scene order.
func AvailabilityReport(scene *Scene) []LayerAvailability {
	report := make([]LayerAvailability, 0, len(scene.Layers))
	for _, l := range scene.Layers {
		report = append(report, LayerAvailability{
			SourceID:  l.SourceID,
			Available: l.Available(),
			Reason:    l.Reason,
		})
	}
	return report
}

// AggregateAvailability reduces the scene's availability flags to a single
// fraction and broadcasts it uniformly across a grid. The fraction is
// whole-scene, not per-pixel: a source is either backed by real data
// everywhere or nowhere, so spatial variation would be fiction. An empty
// scene yields an all-zero grid.
func AggregateAvailability(scene *Scene) *raster.Grid {
	if len(scene.Layers) == 0 {
		return raster.New("data_availability", scene.Width, scene.Height, scene.Bound)
	}
	available := 0
	for _, l := range scene.Layers {
		if l.Available() {
			available++
		}
	}
	frac := float64(available) / float64(len(scene.Layers))
	return raster.NewConstant("data_availability", scene.Width, scene.Height, scene.Bound, frac)
}
