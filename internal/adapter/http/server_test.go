package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/terralens/prospect-fusion/internal/adapter/http"
	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/observability"
	"github.com/terralens/prospect-fusion/internal/raster"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockResults struct {
	res *domain.FusionResult
}

func (m *mockResults) Latest() (*domain.FusionResult, bool) {
	if m.res == nil {
		return nil, false
	}
	return m.res, true
}

func testResult() *domain.FusionResult {
	b := orb.Bound{Min: orb.Point{120, 15}, Max: orb.Point{121, 16}}
	generated := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
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
		Regions: []domain.RegionRecord{
			{ID: "gold-1a2b3c4d5e6f7081", TargetID: "gold", Rank: 1, MeanScore: 0.92, GeneratedAt: generated},
			{ID: "geothermal-00ff00ff00ff00ff", TargetID: "geothermal", Rank: 1, MeanScore: 0.81, GeneratedAt: generated},
		},
		Meta: domain.RunMetadata{
			GeneratedAt:          generated,
			Bands:                domain.SignalNames(),
			RecordCount:          2,
			DataAvailabilityMean: 5.0 / 7.0,
			AssetsPresent:        5,
			SourceCount:          7,
			Seed:                 42,
		},
	}
}

func newTestServer(res *domain.FusionResult, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockResults{res: res}, &mockReadiness{err: readyErr},
		8, observability.NewMetricsForTesting(), slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(nil, fmt.Errorf("no fusion run has completed yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no fusion run has completed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRegionsEndpoint(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/regions", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var regions []domain.RegionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	require.Len(t, regions, 2)
	assert.Equal(t, "gold", regions[0].TargetID)
}

func TestRegionsEndpointFiltersByTarget(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/regions?target=geothermal", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var regions []domain.RegionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	require.Len(t, regions, 1)
	assert.Equal(t, "geothermal", regions[0].TargetID)
}

func TestRegionsEndpointReturns503BeforeFirstRun(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/regions", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no fusion run has completed yet", body["error"])
}

func TestMetadataEndpoint(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/metadata", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var meta domain.RunMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, int64(42), meta.Seed)
	assert.Equal(t, 7, meta.SourceCount)
	assert.Equal(t, 2, meta.RecordCount)
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/availability", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report []domain.LayerAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report, 2)
	assert.True(t, report[0].Available)
	assert.False(t, report[1].Available)
	assert.Contains(t, report[1].Reason, "catalog coverage")
}

func TestLayersEndpoint(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/layers", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Signals  []string `json:"signals"`
		Surfaces []string `json:"surfaces"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Signals, "ndvi")
	assert.Contains(t, body.Signals, "magnetic")
	assert.Equal(t, []string{"gold", "geothermal", "combined", "confidence", "data_availability"}, body.Surfaces)
}

func TestCompositeEndpointServesPNG(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/composites/gold", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestCompositeEndpointStripsPNGSuffix(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/composites/confidence.png", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestCompositeEndpointCachesRenders(t *testing.T) {
	srv := newTestServer(testResult(), nil)

	first := httptest.NewRecorder()
	srv.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/composites/gold", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/composites/gold", nil))
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestCompositeEndpointUnknownSurface(t *testing.T) {
	srv := newTestServer(testResult(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/composites/uranium", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unknown surface: uranium", body["error"])
}
