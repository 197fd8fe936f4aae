// Package provider assembles scenes: the co-registered stack of source
// layers the fusion model runs on. The synthetic provider generates
// deterministic fields in-process; the file provider replays a previously
// exported scene.
package provider

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/paulmach/orb"

	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/raster"
)

// Request describes the scene to assemble: footprint, resolution,
// observation window, and the seed for synthetic generation.
type Request struct {
	AOI    orb.Polygon
	Width  int
	Height int
	Start  time.Time
	End    time.Time
	Seed   int64
}

// observationsPerWindow is how many synthetic acquisitions a time-varying
// source contributes before the temporal median.
const observationsPerWindow = 5

// cloudCover is the cloud-field value above which a Sentinel-2 pixel is
// flagged cloudy for one acquisition, standing in for the QA60 opaque-cloud
// and cirrus bits.
const cloudCover = 0.78

// bandDef is one synthetic band with its physical value range.
type bandDef struct {
	name string
	lo   float64
	hi   float64
}

// catalogSource mirrors one upstream catalog entry: its bands, coverage
// window, and export conventions.
type catalogSource struct {
	id          string
	bands       []bandDef
	start       time.Time // zero for static sources
	end         time.Time
	static      bool
	cloudMasked bool
	scale       float64 // post-median multiplier; 0 means 1
}

func date(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// catalog lists every source a scene carries, in stable order. Coverage
// windows follow the upstream collections: GRACE ended mid-2017 and the
// SMAP product mid-2022, so recent windows legitimately lose them.
var catalog = []catalogSource{
	{
		id: domain.SourceSentinel2,
		bands: []bandDef{
			{"B2", 0, 10000}, {"B3", 0, 10000}, {"B4", 0, 10000},
			{"B8", 0, 10000}, {"B11", 0, 10000}, {"B12", 0, 10000},
		},
		start: date(2017, time.April), end: date(2026, time.June),
		cloudMasked: true,
		scale:       1.0 / 10000,
	},
	{
		id: domain.SourceSRTM,
		bands: []bandDef{
			{"elevation", 0, 2000}, {"slope", 0, 45}, {"aspect", 0, 360},
		},
		static: true,
	},
	{
		id:    domain.SourceSentinel1,
		bands: []bandDef{{"VV", -25, -5}, {"VH", -30, -10}},
		start: date(2014, time.October), end: date(2026, time.June),
	},
	{
		id:    domain.SourceEMIT,
		bands: []bandDef{{"band_depth", 0, 1}},
		start: date(2022, time.August), end: date(2026, time.June),
	},
	{
		id:     domain.SourceEMAG2,
		bands:  []bandDef{{"z", -300, 300}},
		static: true,
	},
	{
		id:    domain.SourceGRACE,
		bands: []bandDef{{"lwe_thickness", -40, 40}},
		start: date(2002, time.April), end: date(2017, time.June),
	},
	{
		id:    domain.SourceSMAP,
		bands: []bandDef{{"ssm", 0, 0.5}, {"susm", 0, 0.5}},
		start: date(2015, time.April), end: date(2022, time.August),
	},
}

// CatalogSourceIDs returns the catalog IDs in scene order.
func CatalogSourceIDs() []string {
	ids := make([]string, 0, len(catalog))
	for _, src := range catalog {
		ids = append(ids, src.id)
	}
	return ids
}

// Synthetic generates scenes from seeded smooth fields. Identical requests
// always produce identical scenes, which keeps runs reproducible without
// any network or archive dependency.
type Synthetic struct {
	logger *slog.Logger
}

// NewSynthetic creates a synthetic scene provider.
func NewSynthetic(logger *slog.Logger) *Synthetic {
	return &Synthetic{logger: logger}
}

// LoadScene assembles one scene, substituting a placeholder for every
// source whose coverage window misses the request.
func (s *Synthetic) LoadScene(ctx context.Context, req Request) (*domain.Scene, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	scene := &domain.Scene{
		AOI:    req.AOI,
		Bound:  req.AOI.Bound(),
		Width:  req.Width,
		Height: req.Height,
	}
	for _, src := range catalog {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layer := s.buildLayer(scene, src, req)
		scene.Layers = append(scene.Layers, layer)
		s.logger.Debug("assembled layer",
			"source", src.id,
			"status", layer.Status,
			"bands", len(layer.Image.Bands))
	}

	available := 0
	for _, l := range scene.Layers {
		if l.Available() {
			available++
		}
	}
	s.logger.Info("scene assembled",
		"sources", len(scene.Layers),
		"available", available,
		"width", req.Width,
		"height", req.Height)
	return scene, nil
}

func validateRequest(req Request) error {
	if req.Width < 1 || req.Height < 1 {
		return errors.New("scene dimensions must be positive")
	}
	if len(req.AOI) == 0 || len(req.AOI[0]) < 4 {
		return errors.New("scene request needs a closed AOI ring")
	}
	if req.End.Before(req.Start) {
		return errors.New("scene request window ends before it starts")
	}
	return nil
}

func (s *Synthetic) buildLayer(scene *domain.Scene, src catalogSource, req Request) domain.SourceLayer {
	if !src.static && !covers(src, req.Start, req.End) {
		reason := fmt.Sprintf("no observations: catalog coverage %s to %s",
			src.start.Format("2006-01"), src.end.Format("2006-01"))
		return scene.PlaceholderLayer(src.id, reason)
	}

	obsCount := observationsPerWindow
	if src.static {
		obsCount = 1
	}
	bands := make([]*raster.Grid, 0, len(src.bands))
	for _, band := range src.bands {
		bands = append(bands, renderBand(src, band, req, obsCount))
	}
	return domain.SourceLayer{
		SourceID: src.id,
		Image:    raster.NewImage(bands...),
		Status:   domain.StatusAvailable,
	}
}

func covers(src catalogSource, start, end time.Time) bool {
	return !end.Before(src.start) && !start.After(src.end)
}

// renderBand generates one band: per-acquisition field values reduced to a
// per-pixel temporal median, cloud-masked acquisitions excluded, pixels
// masked in every acquisition falling back to zero.
func renderBand(src catalogSource, band bandDef, req Request, obsCount int) *raster.Grid {
	f := newField(req.Seed, src.id, band.name, band.lo, band.hi)
	var cloud fieldSpec
	if src.cloudMasked {
		cloud = newField(req.Seed, src.id, "QA60", 0, 1)
	}
	scale := src.scale
	if scale == 0 {
		scale = 1
	}

	g := raster.New(band.name, req.Width, req.Height, req.AOI.Bound())
	vals := make([]float64, 0, obsCount)
	for y := 0; y < req.Height; y++ {
		for x := 0; x < req.Width; x++ {
			u := (float64(x) + 0.5) / float64(req.Width)
			v := (float64(y) + 0.5) / float64(req.Height)
			vals = vals[:0]
			for obs := 0; obs < obsCount; obs++ {
				if src.cloudMasked && cloud.at(u, v, obs) > cloudCover {
					continue
				}
				vals = append(vals, f.at(u, v, obs))
			}
			med, ok := raster.Median(vals)
			if !ok {
				med = 0
			}
			g.Set(x, y, med*scale)
		}
	}
	return g
}

// fieldSpec parameterizes one smooth synthetic field. Low spatial
// frequencies keep anomalies contiguous, the way real geology clusters, so
// extraction downstream sees realistic connected regions.
type fieldSpec struct {
	fx, fy float64
	px, py float64
	warp   float64
	lo, hi float64
}

func newField(seed int64, source, band string, lo, hi float64) fieldSpec {
	h := fnv.New64a()
	h.Write([]byte(source))
	h.Write([]byte{'|'})
	h.Write([]byte(band))
	r := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
	return fieldSpec{
		fx:   1 + r.Float64()*3,
		fy:   1 + r.Float64()*3,
		px:   r.Float64() * 2 * math.Pi,
		py:   r.Float64() * 2 * math.Pi,
		warp: r.Float64() * 1.5,
		lo:   lo,
		hi:   hi,
	}
}

// at evaluates the field at unit coordinates for one acquisition. The obs
// term is a small temporal jitter so the median reduction has spread to
// work with.
func (f fieldSpec) at(u, v float64, obs int) float64 {
	w := math.Sin(2*math.Pi*f.fx*u+f.px) + math.Cos(2*math.Pi*f.fy*v+f.py)
	w += f.warp * math.Sin(2*math.Pi*(u+v)+f.px+f.py)
	n := (w/(2+f.warp) + 1) / 2
	n += 0.03 * math.Sin(float64(obs)*1.7+f.px)
	return f.lo + raster.Clamp01(n)*(f.hi-f.lo)
}
