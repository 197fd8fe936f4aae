package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/terralens/prospect-fusion/internal/raster"
)

// Extraction defaults, used when the target spec leaves a knob unset.
const (
	DefaultThreshold       = 0.7
	DefaultMaxRegions      = 200
	DefaultAttributeStride = 3
	DefaultDepthBase       = 60.0
)

// Depth estimates are clamped to the range a ground survey could plausibly
// follow up on: nothing shallower than overburden, nothing past 2 km.
const (
	minDepthM = 5.0
	maxDepthM = 2000.0
)

// RegionRecord is one ranked exploration target extracted from a composite.
type RegionRecord struct {
	ID          string    `json:"id"`
	TargetID    string    `json:"target_id"`
	Rank        int       `json:"rank"`
	Label       string    `json:"label"`
	Category    string    `json:"category,omitempty"`
	MeanScore   float64   `json:"mean_score"`
	Threshold   float64   `json:"threshold"`
	PixelCount  int       `json:"pixel_count"`
	AreaM2      float64   `json:"area_m2"`
	DepthM      float64   `json:"depth_m"`
	VolumeM3    float64   `json:"volume_m3"`
	CentroidLon float64   `json:"centroid_lon"`
	CentroidLat float64   `json:"centroid_lat"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ExtractOptions tunes region extraction for one target. Zero values fall
// back to the package defaults.
type ExtractOptions struct {
	Threshold       float64
	MaxRegions      int
	Category        string
	AttributeStride int
	DepthBase       float64
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxRegions == 0 {
		o.MaxRegions = DefaultMaxRegions
	}
	if o.AttributeStride < 1 {
		o.AttributeStride = DefaultAttributeStride
	}
	if o.DepthBase == 0 {
		o.DepthBase = DefaultDepthBase
	}
	return o
}

// ExtractRegions turns a composite into ranked region records: hotspots
// strictly above the threshold, 8-connected, scored by their mean composite
// value, sorted descending and truncated to MaxRegions. Ties keep grid scan
// order, so output order is stable across runs.
//
// attrs supplies the normalized "magnetic" and "slope" signals for the depth
// heuristic; a missing attribute contributes zero rather than failing the
// extraction.
func ExtractRegions(targetID string, composite *raster.Grid, attrs map[string]*raster.Grid, opts ExtractOptions) []RegionRecord {
	opts = opts.withDefaults()
	spots := findHotspots(composite, opts.Threshold)
	now := clock.Now().UTC()
	cellArea := composite.CellAreaM2()

	records := make([]RegionRecord, 0, len(spots))
	for _, h := range spots {
		mean := h.meanScore()
		magneticAbs := attributeMean(attrs["magnetic"], h.cells, opts.AttributeStride)
		slope := attributeMean(attrs["slope"], h.cells, opts.AttributeStride)
		depth := estimateDepth(opts.DepthBase, magneticAbs, slope)
		area := float64(len(h.cells)) * cellArea
		centroid := cellsCentroid(composite, h.cells)

		rec := RegionRecord{
			TargetID:    targetID,
			Category:    opts.Category,
			MeanScore:   mean,
			Threshold:   opts.Threshold,
			PixelCount:  len(h.cells),
			AreaM2:      area,
			DepthM:      depth,
			VolumeM3:    area * depth * mean,
			CentroidLon: centroid[0],
			CentroidLat: centroid[1],
			GeneratedAt: now,
		}
		rec.ID = regionID(rec)
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].MeanScore > records[j].MeanScore
	})
	if len(records) > opts.MaxRegions {
		records = records[:opts.MaxRegions]
	}
	for i := range records {
		records[i].Rank = i + 1
		records[i].Label = regionLabel(targetID, i+1)
	}
	return records
}

// attributeMean averages an attribute over every stride-th region cell,
// mirroring the coarser sampling scale attributes are reduced at. The first
// cell is always included, so any non-empty region gets at least one
// sample. Missing attributes contribute zero.
func attributeMean(attr *raster.Grid, cells []int, stride int) float64 {
	if attr == nil || len(cells) == 0 {
		return 0
	}
	var sum float64
	n := 0
	for i := 0; i < len(cells); i += stride {
		sum += attr.Values[cells[i]]
		n++
	}
	return sum / float64(n)
}

// estimateDepth screens how deep a causative body might sit. This is a
// coarse heuristic, not a calibrated inversion: a strong magnetic response
// reads as a shallow source, steep slopes read as thicker cover. Both
// inputs are normalized signal means in [0, 1].
func estimateDepth(base, magneticAbs, slope float64) float64 {
	return raster.Clamp(base*(1-magneticAbs)*(1+slope/10), minDepthM, maxDepthM)
}

// cellsCentroid returns the mean of the member cell centers.
func cellsCentroid(g *raster.Grid, cells []int) orb.Point {
	var lon, lat float64
	for _, i := range cells {
		c := g.CellCenter(i%g.Width, i/g.Width)
		lon += c[0]
		lat += c[1]
	}
	n := float64(len(cells))
	return orb.Point{lon / n, lat / n}
}

// regionID derives a deterministic ID from the fields that identify a
// region. Timestamps are deliberately excluded so re-running the same scene
// yields the same IDs and downstream sinks can upsert idempotently.
func regionID(rec RegionRecord) string {
	input := fmt.Sprintf("%s|%.6f|%.6f|%.6f", rec.TargetID, rec.CentroidLon, rec.CentroidLat, rec.MeanScore)
	hash := sha256.Sum256([]byte(input))
	return rec.TargetID + "-" + hex.EncodeToString(hash[:8])
}

// regionLabel builds the display label, e.g. "Gold zone 3".
func regionLabel(targetID string, rank int) string {
	name := strings.ReplaceAll(targetID, "_", " ")
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s zone %d", name, rank)
}
