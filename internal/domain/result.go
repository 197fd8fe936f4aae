package domain

import (
	"time"

	"github.com/paulmach/orb/geo"

	"github.com/terralens/prospect-fusion/internal/raster"
)

// RunMetadata summarizes one fusion run for the metadata artifact and the
// HTTP surface.
type RunMetadata struct {
	GeneratedAt          time.Time `json:"generated_at"`
	AOIAreaSqKm          float64   `json:"aoi_area_sq_km"`
	Bands                []string  `json:"bands"`
	RecordCount          int       `json:"record_count"`
	DataAvailabilityMean float64   `json:"data_availability_mean"`
	AssetsPresent        int       `json:"assets_present"`
	SourceCount          int       `json:"source_count"`
	Seed                 int64     `json:"seed"`
}

// BuildMetadata derives run metadata from the scene and the extracted
// records. The timestamp comes from the package clock so tests can freeze
// it.
func BuildMetadata(scene *Scene, regions []RegionRecord, seed int64) RunMetadata {
	present := 0
	for _, l := range scene.Layers {
		if l.Available() {
			present++
		}
	}
	frac := 0.0
	if len(scene.Layers) > 0 {
		frac = float64(present) / float64(len(scene.Layers))
	}
	return RunMetadata{
		GeneratedAt:          clock.Now().UTC(),
		AOIAreaSqKm:          geo.Area(scene.AOI) / 1e6,
		Bands:                SignalNames(),
		RecordCount:          len(regions),
		DataAvailabilityMean: frac,
		AssetsPresent:        present,
		SourceCount:          len(scene.Layers),
		Seed:                 seed,
	}
}

// FusionResult is the complete output of one run: every derived surface,
// the availability report, and the ranked region records across all
// targets.
type FusionResult struct {
	Signals      map[string]*raster.Grid
	Composites   []*raster.Grid
	Fused        *raster.Grid
	Confidence   *raster.Grid
	Availability *raster.Grid
	Report       []LayerAvailability
	Regions      []RegionRecord
	Meta         RunMetadata
}

// Surface resolves a renderable surface by name: a target composite, or one
// of the derived grids ("combined", "confidence", "data_availability").
func (r *FusionResult) Surface(name string) (*raster.Grid, bool) {
	for _, c := range r.Composites {
		if c.Band == name {
			return c, true
		}
	}
	for _, g := range []*raster.Grid{r.Fused, r.Confidence, r.Availability} {
		if g != nil && g.Band == name {
			return g, true
		}
	}
	return nil, false
}

// SurfaceNames lists the renderable surfaces in presentation order.
func (r *FusionResult) SurfaceNames() []string {
	names := make([]string, 0, len(r.Composites)+3)
	for _, c := range r.Composites {
		names = append(names, c.Band)
	}
	for _, g := range []*raster.Grid{r.Fused, r.Confidence, r.Availability} {
		if g != nil {
			names = append(names, g.Band)
		}
	}
	return names
}
