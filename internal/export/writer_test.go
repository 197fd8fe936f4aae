package export

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/raster"
)

func sampleResult() *domain.FusionResult {
	b := testBound()
	return &domain.FusionResult{
		Composites: []*raster.Grid{
			raster.NewConstant("gold", 4, 4, b, 0.8),
			raster.NewConstant("geothermal", 4, 4, b, 0.4),
		},
		Fused:        raster.NewConstant("combined", 4, 4, b, 0.6),
		Confidence:   raster.NewConstant("confidence", 4, 4, b, 0.7),
		Availability: raster.NewConstant("data_availability", 4, 4, b, 5.0/7.0),
		Report: []domain.LayerAvailability{
			{SourceID: "sentinel2_sr", Available: true},
			{SourceID: "grace_gravity", Available: false, Reason: "no observations: catalog coverage 2002-04-01 to 2017-06-30"},
		},
		Regions: sampleRegions(),
		Meta: domain.RunMetadata{
			GeneratedAt:          time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			AOIAreaSqKm:          10981.2,
			Bands:                domain.SignalNames(),
			RecordCount:          2,
			DataAvailabilityMean: 5.0 / 7.0,
			AssetsPresent:        5,
			SourceCount:          7,
			Seed:                 42,
		},
	}
}

func TestWriter_WriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))

	res := sampleResult()
	require.NoError(t, w.WriteArtifacts(res))

	for _, name := range []string{"regions.csv", "regions.geojson", "metadata.json", "availability.json"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
	for _, name := range res.SurfaceNames() {
		_, err := os.Stat(filepath.Join(dir, "surfaces", name+".png"))
		require.NoError(t, err, name)
	}

	t.Run("MetadataRoundTrips", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
		require.NoError(t, err)

		var meta domain.RunMetadata
		require.NoError(t, json.Unmarshal(data, &meta))
		assert.Equal(t, res.Meta, meta)
	})

	t.Run("AvailabilityRoundTrips", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "availability.json"))
		require.NoError(t, err)

		var report []domain.LayerAvailability
		require.NoError(t, json.Unmarshal(data, &report))
		assert.Equal(t, res.Report, report)
	})

	t.Run("SurfacesUpscaled", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "surfaces", "gold.png"))
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 4*renderScale, img.Bounds().Dx())
		assert.Equal(t, 4*renderScale, img.Bounds().Dy())
	})
}

func TestWriter_WriteArtifacts_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	w := New(file, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := w.WriteArtifacts(sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create output dir")
}
