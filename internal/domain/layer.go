package domain

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/terralens/prospect-fusion/internal/raster"
)

// Availability status of a source layer within a scene.
const (
	StatusAvailable   = "available"
	StatusPlaceholder = "placeholder"
)

// SourceLayer is one catalog source's contribution to a scene: the exported
// image plus the availability tag describing whether real data backs it.
type SourceLayer struct {
	SourceID string
	Image    *raster.Image
	Status   string
	Reason   string
}

// Available reports whether real catalog data backs the layer.
func (l SourceLayer) Available() bool { return l.Status == StatusAvailable }

// Scene is a co-registered stack of source layers over one area of
// interest. All grids share Width, Height, and Bound.
type Scene struct {
	AOI    orb.Polygon
	Bound  orb.Bound
	Width  int
	Height int
	Layers []SourceLayer
}

// Layer returns the layer for sourceID, or false when the scene does not
// carry it.
func (s *Scene) Layer(sourceID string) (SourceLayer, bool) {
	for _, l := range s.Layers {
		if l.SourceID == sourceID {
			return l, true
		}
	}
	return SourceLayer{}, false
}

// PlaceholderLayer builds an unavailable stand-in for sourceID: one all-zero
// band named after the sanitized source ID, shaped like the scene. Keeping
// placeholders in the stack means every derived product exists regardless of
// which sources were reachable.
func (s *Scene) PlaceholderLayer(sourceID, reason string) SourceLayer {
	band := raster.New(SanitizeSourceID(sourceID), s.Width, s.Height, s.Bound)
	return SourceLayer{
		SourceID: sourceID,
		Image:    raster.NewImage(band),
		Status:   StatusPlaceholder,
		Reason:   reason,
	}
}

// sourceImage returns the image for sourceID, substituting a placeholder
// image when the scene does not carry the source at all.
func (s *Scene) sourceImage(sourceID string) *raster.Image {
	if l, ok := s.Layer(sourceID); ok {
		return l.Image
	}
	return s.PlaceholderLayer(sourceID, "source not present in scene").Image
}

// SanitizeSourceID converts a catalog ID like "COPERNICUS/S2_SR" into an
// identifier safe for band names and file paths.
func SanitizeSourceID(sourceID string) string {
	return strings.ToLower(strings.NewReplacer("/", "_", ":", "_", " ", "_").Replace(sourceID))
}

// SelectBand returns the first band in preferred that the image carries.
// When none is present it returns a constant grid at def, named after the
// first preference and shaped like the image's first band. Missing bands
// therefore degrade to a neutral value instead of failing the run. Images
// always carry at least one band; placeholders carry a single zero band.
func SelectBand(im *raster.Image, preferred []string, def float64) *raster.Grid {
	for _, name := range preferred {
		if b, ok := im.Band(name); ok {
			return b
		}
	}
	ref := im.Bands[0]
	return raster.NewConstant(preferred[0], ref.Width, ref.Height, ref.Bound, def)
}
