package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"

	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/raster"
)

// sceneFile is the on-disk scene schema. Values are flat row-major arrays,
// northernmost row first, matching the in-memory grid layout.
type sceneFile struct {
	Seed   int64            `json:"seed"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Bound  [4]float64       `json:"bound"` // min lon, min lat, max lon, max lat
	AOI    [][]float64      `json:"aoi"`
	Layers []sceneFileLayer `json:"layers"`
}

type sceneFileLayer struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Reason string          `json:"reason,omitempty"`
	Bands  []sceneFileBand `json:"bands"`
}

type sceneFileBand struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// WriteScene exports a scene to path, creating parent directories as
// needed.
func WriteScene(path string, scene *domain.Scene, seed int64) error {
	sf := sceneFile{
		Seed:   seed,
		Width:  scene.Width,
		Height: scene.Height,
		Bound: [4]float64{
			scene.Bound.Min[0], scene.Bound.Min[1],
			scene.Bound.Max[0], scene.Bound.Max[1],
		},
	}
	for _, p := range scene.AOI[0] {
		sf.AOI = append(sf.AOI, []float64{p[0], p[1]})
	}
	for _, l := range scene.Layers {
		fl := sceneFileLayer{ID: l.SourceID, Status: l.Status, Reason: l.Reason}
		for _, b := range l.Image.Bands {
			fl.Bands = append(fl.Bands, sceneFileBand{Name: b.Band, Values: b.Values})
		}
		sf.Layers = append(sf.Layers, fl)
	}

	data, err := json.Marshal(sf)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create scene dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return nil
}

// ReadScene loads a scene exported by WriteScene, checking that every band
// matches the declared dimensions.
func ReadScene(path string) (*domain.Scene, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read scene: %w", err)
	}
	var sf sceneFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, 0, fmt.Errorf("parse scene: %w", err)
	}
	if sf.Width < 1 || sf.Height < 1 {
		return nil, 0, fmt.Errorf("scene %s: dimensions must be positive", path)
	}
	if len(sf.AOI) < 4 {
		return nil, 0, fmt.Errorf("scene %s: aoi ring is incomplete", path)
	}
	if len(sf.Layers) == 0 {
		return nil, 0, fmt.Errorf("scene %s: no layers", path)
	}

	bound := orb.Bound{
		Min: orb.Point{sf.Bound[0], sf.Bound[1]},
		Max: orb.Point{sf.Bound[2], sf.Bound[3]},
	}
	ring := make(orb.Ring, 0, len(sf.AOI))
	for i, c := range sf.AOI {
		if len(c) != 2 {
			return nil, 0, fmt.Errorf("scene %s: aoi vertex %d: want [lon, lat]", path, i)
		}
		ring = append(ring, orb.Point{c[0], c[1]})
	}

	scene := &domain.Scene{
		AOI:    orb.Polygon{ring},
		Bound:  bound,
		Width:  sf.Width,
		Height: sf.Height,
	}
	for _, fl := range sf.Layers {
		if fl.Status != domain.StatusAvailable && fl.Status != domain.StatusPlaceholder {
			return nil, 0, fmt.Errorf("scene %s: layer %s: unknown status %q", path, fl.ID, fl.Status)
		}
		bands := make([]*raster.Grid, 0, len(fl.Bands))
		for _, fb := range fl.Bands {
			if len(fb.Values) != sf.Width*sf.Height {
				return nil, 0, fmt.Errorf("scene %s: layer %s band %s: %d values, want %d",
					path, fl.ID, fb.Name, len(fb.Values), sf.Width*sf.Height)
			}
			g := raster.New(fb.Name, sf.Width, sf.Height, bound)
			copy(g.Values, fb.Values)
			bands = append(bands, g)
		}
		if len(bands) == 0 {
			return nil, 0, fmt.Errorf("scene %s: layer %s has no bands", path, fl.ID)
		}
		scene.Layers = append(scene.Layers, domain.SourceLayer{
			SourceID: fl.ID,
			Image:    raster.NewImage(bands...),
			Status:   fl.Status,
			Reason:   fl.Reason,
		})
	}
	return scene, sf.Seed, nil
}

// File replays a previously exported scene. The scene's own footprint and
// resolution win over the request; a mismatch with the spec grid is logged,
// not fatal.
type File struct {
	path   string
	logger *slog.Logger
}

// NewFile creates a file-backed scene provider.
func NewFile(path string, logger *slog.Logger) *File {
	return &File{path: path, logger: logger}
}

// LoadScene reads the scene file, warning when its shape differs from the
// requested grid.
func (f *File) LoadScene(ctx context.Context, req Request) (*domain.Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scene, _, err := ReadScene(f.path)
	if err != nil {
		return nil, err
	}
	if scene.Width != req.Width || scene.Height != req.Height {
		f.logger.Warn("scene file shape overrides the spec grid",
			"path", f.path,
			"scene_width", scene.Width,
			"scene_height", scene.Height,
			"spec_width", req.Width,
			"spec_height", req.Height)
	}
	f.logger.Info("scene loaded from file", "path", f.path, "sources", len(scene.Layers))
	return scene, nil
}
