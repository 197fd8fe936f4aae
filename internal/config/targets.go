package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/terralens/prospect-fusion/internal/domain"
)

// Fusion spec defaults, applied to fields the YAML leaves unset.
const (
	defaultGridWidth    = 128
	defaultGridHeight   = 128
	defaultSeed         = 42
	defaultSampleStride = 4
	defaultWindowStart  = "2024-01-01"
	defaultWindowEnd    = "2024-12-31"

	// Weight mass outside this band is flagged as a warning. It is never an
	// error: under- and over-weighting are legitimate ways to express
	// caution or optimism about a target.
	weightSumLow  = 0.9
	weightSumHigh = 1.1
)

// reservedTargetIDs are band names the pipeline assigns to derived
// surfaces; a target with one of these IDs would collide with them.
var reservedTargetIDs = map[string]bool{
	"combined":          true,
	"confidence":        true,
	"data_availability": true,
}

// FusionSpec is the YAML run description: where to look, when, and what to
// look for.
type FusionSpec struct {
	Seed              int64               `yaml:"seed"`
	Grid              GridSpec            `yaml:"grid"`
	AOI               [][]float64         `yaml:"aoi"`
	Window            WindowSpec          `yaml:"time_range"`
	SampleStride      int                 `yaml:"sample_stride"`
	AttributeStride   int                 `yaml:"attribute_stride"`
	DepthBase         float64             `yaml:"depth_base"`
	Divisors          domain.SignalScales `yaml:"divisors"`
	ExtractFused      bool                `yaml:"extract_fused"`
	ExtractConfidence bool                `yaml:"extract_confidence"`
	Targets           []TargetSpec        `yaml:"targets"`

	polygon orb.Polygon
	start   time.Time
	end     time.Time
}

// GridSpec sets the raster resolution every source is sampled onto.
type GridSpec struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// WindowSpec bounds the observation time range, ISO dates inclusive.
type WindowSpec struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// TargetSpec describes one commodity target: which signals indicate it and
// how strongly.
type TargetSpec struct {
	ID         string             `yaml:"id"`
	Category   string             `yaml:"category"`
	Threshold  float64            `yaml:"threshold"`
	MaxRegions int                `yaml:"max_regions"`
	Weights    map[string]float64 `yaml:"weights"`
}

// LoadSpec reads, defaults, and validates a fusion spec. Warnings are
// advisory; a non-nil error means the spec must not run.
func LoadSpec(path string) (*FusionSpec, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read fusion spec: %w", err)
	}
	var spec FusionSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, nil, fmt.Errorf("parse fusion spec: %w", err)
	}
	spec.applyDefaults()
	warnings, err := spec.Validate()
	if err != nil {
		return nil, warnings, err
	}
	return &spec, warnings, nil
}

func (s *FusionSpec) applyDefaults() {
	if s.Seed == 0 {
		s.Seed = defaultSeed
	}
	if s.Grid.Width == 0 {
		s.Grid.Width = defaultGridWidth
	}
	if s.Grid.Height == 0 {
		s.Grid.Height = defaultGridHeight
	}
	if s.SampleStride == 0 {
		s.SampleStride = defaultSampleStride
	}
	if s.AttributeStride == 0 {
		s.AttributeStride = domain.DefaultAttributeStride
	}
	if s.DepthBase == 0 {
		s.DepthBase = domain.DefaultDepthBase
	}
	if s.Window.Start == "" {
		s.Window.Start = defaultWindowStart
	}
	if s.Window.End == "" {
		s.Window.End = defaultWindowEnd
	}

	def := domain.DefaultSignalScales()
	if s.Divisors.Slope == 0 {
		s.Divisors.Slope = def.Slope
	}
	if s.Divisors.Aspect == 0 {
		s.Divisors.Aspect = def.Aspect
	}
	if s.Divisors.Radar == 0 {
		s.Divisors.Radar = def.Radar
	}
	if s.Divisors.Magnetic == 0 {
		s.Divisors.Magnetic = def.Magnetic
	}
	if s.Divisors.Gravity == 0 {
		s.Divisors.Gravity = def.Gravity
	}
	if s.Divisors.Moisture == 0 {
		s.Divisors.Moisture = def.Moisture
	}

	for i := range s.Targets {
		if s.Targets[i].Threshold == 0 {
			s.Targets[i].Threshold = domain.DefaultThreshold
		}
		if s.Targets[i].MaxRegions == 0 {
			s.Targets[i].MaxRegions = domain.DefaultMaxRegions
		}
	}
}

// Validate checks the spec for fatal misconfiguration and collects advisory
// warnings. Configuration errors are the one failure class that stops a run
// before any compute is spent.
func (s *FusionSpec) Validate() ([]string, error) {
	var warnings []string

	if s.Grid.Width <= 0 || s.Grid.Height <= 0 {
		return nil, errors.New("grid dimensions must be positive")
	}
	if s.SampleStride < 1 {
		return nil, errors.New("sample_stride must be at least 1")
	}
	if s.AttributeStride < 1 {
		return nil, errors.New("attribute_stride must be at least 1")
	}
	if s.DepthBase <= 0 {
		return nil, errors.New("depth_base must be positive")
	}
	if err := validateDivisors(s.Divisors); err != nil {
		return nil, err
	}

	poly, err := parseAOI(s.AOI)
	if err != nil {
		return nil, err
	}
	s.polygon = poly

	start, err := time.Parse("2006-01-02", s.Window.Start)
	if err != nil {
		return nil, fmt.Errorf("parse time_range.start: %w", err)
	}
	end, err := time.Parse("2006-01-02", s.Window.End)
	if err != nil {
		return nil, fmt.Errorf("parse time_range.end: %w", err)
	}
	if end.Before(start) {
		return nil, errors.New("time_range.end is before time_range.start")
	}
	s.start, s.end = start, end

	if len(s.Targets) == 0 {
		return nil, errors.New("at least one target is required")
	}
	seen := make(map[string]bool, len(s.Targets))
	for _, t := range s.Targets {
		if t.ID == "" {
			return nil, errors.New("target id must not be empty")
		}
		if reservedTargetIDs[t.ID] {
			return nil, fmt.Errorf("target id %q is reserved for a derived surface", t.ID)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		seen[t.ID] = true

		if t.Threshold <= 0 || t.Threshold >= 1 {
			return nil, fmt.Errorf("target %q: threshold must be inside (0, 1)", t.ID)
		}
		if t.MaxRegions < 1 {
			return nil, fmt.Errorf("target %q: max_regions must be at least 1", t.ID)
		}
		if len(t.Weights) == 0 {
			return nil, fmt.Errorf("target %q: at least one weight is required", t.ID)
		}
		for name, w := range t.Weights {
			if !domain.KnownSignal(name) {
				return nil, fmt.Errorf("target %q: unknown signal %q", t.ID, name)
			}
			if w < 0 || math.IsNaN(w) {
				return nil, fmt.Errorf("target %q: weight for %q must be non-negative", t.ID, name)
			}
		}
		if sum := domain.WeightSum(t.Weights); sum < weightSumLow || sum > weightSumHigh {
			warnings = append(warnings, fmt.Sprintf(
				"target %q weights sum to %.3f, outside [%.1f, %.1f]", t.ID, sum, weightSumLow, weightSumHigh))
		}
	}

	return warnings, nil
}

// Polygon returns the validated AOI ring. Valid only after Validate.
func (s *FusionSpec) Polygon() orb.Polygon { return s.polygon }

// Bound returns the AOI bounding box. Valid only after Validate.
func (s *FusionSpec) Bound() orb.Bound { return s.polygon.Bound() }

// TimeWindow returns the validated observation range. Valid only after
// Validate.
func (s *FusionSpec) TimeWindow() (start, end time.Time) { return s.start, s.end }

func validateDivisors(d domain.SignalScales) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"slope", d.Slope}, {"aspect", d.Aspect}, {"radar", d.Radar},
		{"magnetic", d.Magnetic}, {"gravity", d.Gravity}, {"moisture", d.Moisture},
	}
	for _, f := range fields {
		if f.v <= 0 {
			return fmt.Errorf("divisors.%s must be positive", f.name)
		}
	}
	return nil
}

func parseAOI(coords [][]float64) (orb.Polygon, error) {
	if len(coords) < 3 {
		return nil, errors.New("aoi needs at least 3 vertices")
	}
	ring := make(orb.Ring, 0, len(coords)+1)
	for i, c := range coords {
		if len(c) != 2 {
			return nil, fmt.Errorf("aoi vertex %d: want [lon, lat]", i)
		}
		lon, lat := c[0], c[1]
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("aoi vertex %d: coordinates out of range", i)
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	poly := orb.Polygon{ring}
	if planar.Area(poly) == 0 {
		return nil, errors.New("aoi polygon has zero area")
	}
	return poly, nil
}
