// Package raster provides the in-memory grid substrate the fusion pipeline
// operates on: single-band float64 grids over a geographic extent, multi-band
// images, and sampling statistics.
package raster

import (
	"math"

	"github.com/paulmach/orb"
)

// Approximate planar meter lengths of one degree at the WGS-84 surface.
// Longitude shrinks with the cosine of latitude; both are evaluated at the
// grid's center latitude, which is accurate enough for regional AOIs.
const (
	metersPerDegLat = 110574.0
	metersPerDegLon = 111320.0
)

// Grid is a single-band 2-D raster of float64 samples over a geographic
// extent. Values are stored row-major with the northernmost row first,
// matching the orientation of upstream catalog exports. len(Values) is
// always Width*Height.
//
// Grids are treated as immutable once produced: every transform allocates a
// new grid, because normalized and composite layers are shared by multiple
// downstream consumers.
type Grid struct {
	Band   string
	Width  int
	Height int
	Bound  orb.Bound
	Values []float64
}

// New creates a zero-filled grid.
func New(band string, width, height int, bound orb.Bound) *Grid {
	return &Grid{
		Band:   band,
		Width:  width,
		Height: height,
		Bound:  bound,
		Values: make([]float64, width*height),
	}
}

// NewConstant creates a grid with every cell set to v.
func NewConstant(band string, width, height int, bound orb.Bound, v float64) *Grid {
	g := New(band, width, height, bound)
	for i := range g.Values {
		g.Values[i] = v
	}
	return g
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		Band:   g.Band,
		Width:  g.Width,
		Height: g.Height,
		Bound:  g.Bound,
		Values: make([]float64, len(g.Values)),
	}
	copy(out.Values, g.Values)
	return out
}

// Index converts cell coordinates to the flat Values offset.
func (g *Grid) Index(x, y int) int { return y*g.Width + x }

// At returns the value at cell (x, y).
func (g *Grid) At(x, y int) float64 { return g.Values[y*g.Width+x] }

// Set writes the value at cell (x, y).
func (g *Grid) Set(x, y int, v float64) { g.Values[y*g.Width+x] = v }

// CellSizeX returns the cell width in degrees of longitude.
func (g *Grid) CellSizeX() float64 {
	if g.Width == 0 {
		return 0
	}
	return (g.Bound.Max[0] - g.Bound.Min[0]) / float64(g.Width)
}

// CellSizeY returns the cell height in degrees of latitude.
func (g *Grid) CellSizeY() float64 {
	if g.Height == 0 {
		return 0
	}
	return (g.Bound.Max[1] - g.Bound.Min[1]) / float64(g.Height)
}

// CellCenter returns the geographic center of cell (x, y). Row 0 is the
// northernmost row, so latitude decreases with y.
func (g *Grid) CellCenter(x, y int) orb.Point {
	return orb.Point{
		g.Bound.Min[0] + (float64(x)+0.5)*g.CellSizeX(),
		g.Bound.Max[1] - (float64(y)+0.5)*g.CellSizeY(),
	}
}

// CellAreaM2 returns the planar area of one cell in square meters, using the
// meter lengths of a degree at the grid's center latitude.
func (g *Grid) CellAreaM2() float64 {
	midLat := (g.Bound.Min[1] + g.Bound.Max[1]) / 2
	w := g.CellSizeX() * metersPerDegLon * math.Cos(midLat*math.Pi/180)
	h := g.CellSizeY() * metersPerDegLat
	return math.Abs(w * h)
}

// Map returns a new grid with fn applied to every cell.
func (g *Grid) Map(band string, fn func(v float64) float64) *Grid {
	out := New(band, g.Width, g.Height, g.Bound)
	for i, v := range g.Values {
		out.Values[i] = fn(v)
	}
	return out
}

// Zip combines two equally-shaped grids cell-wise into a new grid.
// Shape equality is a caller precondition: all grids in one scene are
// co-registered by the provider.
func Zip(band string, a, b *Grid, fn func(av, bv float64) float64) *Grid {
	out := New(band, a.Width, a.Height, a.Bound)
	for i := range a.Values {
		out.Values[i] = fn(a.Values[i], b.Values[i])
	}
	return out
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v into the unit interval.
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }
