package domain

import "github.com/terralens/prospect-fusion/internal/raster"

// hotspot is one connected group of above-threshold cells, recorded as flat
// grid indices in discovery order.
type hotspot struct {
	cells []int
	sum   float64
}

func (h hotspot) meanScore() float64 {
	if len(h.cells) == 0 {
		return 0
	}
	return h.sum / float64(len(h.cells))
}

// findHotspots groups cells strictly above threshold into 8-connected
// regions. Cells exactly at the threshold are excluded, which keeps the
// boundary semantics unambiguous when scores saturate at the clamp limits.
// Scanning is row-major from the northwest corner, so region discovery
// order is deterministic for a given grid.
func findHotspots(g *raster.Grid, threshold float64) []hotspot {
	visited := make([]bool, len(g.Values))
	var spots []hotspot
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			i := g.Index(x, y)
			if visited[i] || g.Values[i] <= threshold {
				continue
			}
			visited[i] = true
			spots = append(spots, floodFill(g, threshold, visited, i))
		}
	}
	return spots
}

// floodFill walks one region with an explicit stack. Grids can be large
// enough that recursing per cell risks the stack on a single massive
// anomaly.
func floodFill(g *raster.Grid, threshold float64, visited []bool, start int) hotspot {
	var h hotspot
	stack := []int{start}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		h.cells = append(h.cells, i)
		h.sum += g.Values[i]

		x, y := i%g.Width, i/g.Width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= g.Width || ny >= g.Height {
					continue
				}
				ni := ny*g.Width + nx
				if visited[ni] || g.Values[ni] <= threshold {
					continue
				}
				visited[ni] = true
				stack = append(stack, ni)
			}
		}
	}
	return h
}
