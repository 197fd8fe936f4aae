package domain

import (
	"math"

	"github.com/terralens/prospect-fusion/internal/raster"
)

// Catalog IDs of the sources the signal table draws on.
const (
	SourceSentinel2 = "COPERNICUS/S2_SR"
	SourceSRTM      = "USGS/SRTMGL1_003"
	SourceSentinel1 = "COPERNICUS/S1_GRD"
	SourceEMIT      = "NASA/EMIT/SurfaceMineralogy"
	SourceEMAG2     = "NOAA/NGDC/EMAG2_2"
	SourceGRACE     = "NASA/GRACE/MASS_GRIDS"
	SourceSMAP      = "NASA_USDA/HSL/SMAP_soil_moisture"
)

// Sentinel-1 backscatter defaults in dB, substituted when the radar export
// lacks a polarization band. They sit mid-range for land surfaces, so a
// missing band biases the radar signal toward neutral rather than zero.
const (
	defaultVV = -20.0
	defaultVH = -25.0
)

// SignalScales holds the physical full-scale divisors for divisor-normalized
// signals. Values are divisors in the unit of the underlying band (degrees,
// nT, cm, volumetric fraction); radar is the dB spread mapped onto the unit
// interval.
type SignalScales struct {
	Slope    float64 `yaml:"slope"`
	Aspect   float64 `yaml:"aspect"`
	Radar    float64 `yaml:"radar"`
	Magnetic float64 `yaml:"magnetic"`
	Gravity  float64 `yaml:"gravity"`
	Moisture float64 `yaml:"moisture"`
}

// DefaultSignalScales returns the standard divisors: slope full scale 90°,
// aspect 360°, radar 30 dB spread, magnetic anomaly 200 nT, gravity
// equivalent water thickness 50 cm, soil moisture 0.6.
func DefaultSignalScales() SignalScales {
	return SignalScales{
		Slope:    90,
		Aspect:   360,
		Radar:    30,
		Magnetic: 200,
		Gravity:  50,
		Moisture: 0.6,
	}
}

// signalNames lists every derived signal in presentation order.
var signalNames = []string{
	"ndvi", "ndwi", "clay", "iron_oxide", "silica",
	"slope", "aspect", "elevation",
	"radar", "magnetic", "gravity", "moisture", "mineralogy",
}

// SignalNames returns the derived signal names in presentation order.
func SignalNames() []string {
	out := make([]string, len(signalNames))
	copy(out, signalNames)
	return out
}

// KnownSignal reports whether name is a derived signal a target weight may
// reference.
func KnownSignal(name string) bool {
	for _, n := range signalNames {
		if n == name {
			return true
		}
	}
	return false
}

// DeriveSignals evaluates the full signal table against a scene. Every
// signal is produced exactly once per run regardless of how many targets
// weight it; placeholder sources flow through the normalizers and come out
// as neutral constants instead of gaps. stride is the sampling stride for
// percentile-normalized signals.
func DeriveSignals(scene *Scene, scales SignalScales, stride int) map[string]*raster.Grid {
	s2 := scene.sourceImage(SourceSentinel2)
	b2 := SelectBand(s2, []string{"B2"}, 0)
	b3 := SelectBand(s2, []string{"B3"}, 0)
	b4 := SelectBand(s2, []string{"B4"}, 0)
	b8 := SelectBand(s2, []string{"B8"}, 0)
	b11 := SelectBand(s2, []string{"B11"}, 0)
	b12 := SelectBand(s2, []string{"B12"}, 0)

	srtm := scene.sourceImage(SourceSRTM)
	elevation := SelectBand(srtm, []string{"elevation"}, 0)
	slope := SelectBand(srtm, []string{"slope"}, 0)
	aspect := SelectBand(srtm, []string{"aspect"}, 0)

	s1 := scene.sourceImage(SourceSentinel1)
	vv := SelectBand(s1, []string{"VV"}, defaultVV)
	vh := SelectBand(s1, []string{"VH"}, defaultVH)

	magnetic := SelectBand(scene.sourceImage(SourceEMAG2), []string{"z"}, 0)
	gravity := SelectBand(scene.sourceImage(SourceGRACE), []string{"lwe_thickness"}, 0)
	moisture := SelectBand(scene.sourceImage(SourceSMAP), []string{"ssm", "susm"}, 0)
	mineralogy := SelectBand(scene.sourceImage(SourceEMIT), []string{"band_depth"}, 0)

	return map[string]*raster.Grid{
		"ndvi":       NormalizeRatio("ndvi", b8, b4),
		"ndwi":       NormalizeRatio("ndwi", b3, b8),
		"clay":       NormalizeRatio("clay", b11, b12),
		"iron_oxide": NormalizeRatio("iron_oxide", b4, b2),
		"silica":     NormalizeRatio("silica", b8, b11),

		"slope":     NormalizeDivisor("slope", slope, scales.Slope),
		"aspect":    NormalizeDivisor("aspect", aspect, scales.Aspect),
		"elevation": NormalizePercentile("elevation", elevation, scene.AOI, stride),

		"radar": raster.Zip("radar", vv, vh, func(a, b float64) float64 {
			return raster.Clamp01((a-b)/scales.Radar + 0.5)
		}),
		"magnetic": NormalizeDivisor("magnetic", magnetic.Map("magnetic", math.Abs), scales.Magnetic),
		"gravity":  NormalizeDivisor("gravity", gravity.Map("gravity", math.Abs), scales.Gravity),
		"moisture": NormalizeDivisor("moisture", moisture, scales.Moisture),

		"mineralogy": NormalizePercentile("mineralogy", mineralogy, scene.AOI, stride),
	}
}
