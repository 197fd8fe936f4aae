package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/terralens/prospect-fusion/internal/domain"
)

// renderScale is the upscaling factor for surface heatmaps, so a 128-cell
// grid exports at a size a human can read.
const renderScale = 4

// Writer persists run artifacts to an output directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// New creates an artifact writer rooted at dir.
func New(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// WriteArtifacts writes the full artifact set for one run: the region table
// as CSV and GeoJSON, run metadata, the availability report, and a PNG
// heatmap per surface.
func (w *Writer) WriteArtifacts(res *domain.FusionResult) error {
	surfacesDir := filepath.Join(w.dir, "surfaces")
	if err := os.MkdirAll(surfacesDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := w.writeRegionsCSV(res); err != nil {
		return err
	}
	fc := RegionsFeatureCollection(res.Regions)
	if err := w.writeJSON("regions.geojson", fc); err != nil {
		return err
	}
	if err := w.writeJSON("metadata.json", res.Meta); err != nil {
		return err
	}
	if err := w.writeJSON("availability.json", res.Report); err != nil {
		return err
	}

	for _, name := range res.SurfaceNames() {
		g, _ := res.Surface(name)
		data, err := RenderPNG(g, renderScale)
		if err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		path := filepath.Join(surfacesDir, name+".png")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	w.logger.Info("artifacts written",
		"dir", w.dir,
		"regions", len(res.Regions),
		"surfaces", len(res.SurfaceNames()))
	return nil
}

func (w *Writer) writeRegionsCSV(res *domain.FusionResult) error {
	var buf bytes.Buffer
	if err := WriteRegionsCSV(&buf, res.Regions); err != nil {
		return err
	}
	path := filepath.Join(w.dir, "regions.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write regions.csv: %w", err)
	}
	return nil
}

func (w *Writer) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, name), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
