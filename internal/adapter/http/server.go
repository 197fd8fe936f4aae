package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/export"
	"github.com/terralens/prospect-fusion/internal/observability"
)

// renderScale is the upscaling factor for surface PNGs served over HTTP.
const renderScale = 4

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ResultSource provides the latest completed fusion result.
type ResultSource interface {
	Latest() (*domain.FusionResult, bool)
}

// Server exposes health, metrics, and fusion result HTTP endpoints.
type Server struct {
	httpServer *http.Server
	results    ResultSource
	cache      *renderCache
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /v1 fusion result routes.
func NewServer(addr string, results ResultSource, ready ReadinessChecker, cacheSize int, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		results: results,
		cache:   newRenderCache(cacheSize),
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/regions", s.handleRegions)
	mux.HandleFunc("GET /v1/metadata", s.handleMetadata)
	mux.HandleFunc("GET /v1/availability", s.handleAvailability)
	mux.HandleFunc("GET /v1/layers", s.handleLayers)
	mux.HandleFunc("GET /v1/composites/{name}", s.handleComposite)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}

	regions := res.Regions
	if target := r.URL.Query().Get("target"); target != "" {
		filtered := make([]domain.RegionRecord, 0, len(regions))
		for _, rec := range regions {
			if rec.TargetID == target {
				filtered = append(filtered, rec)
			}
		}
		regions = filtered
	}
	writeJSON(w, http.StatusOK, regions)
}

func (s *Server) handleMetadata(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Meta)
}

func (s *Server) handleAvailability(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Report)
}

type layersResponse struct {
	Signals  []string `json:"signals"`
	Surfaces []string `json:"surfaces"`
}

func (s *Server) handleLayers(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, layersResponse{
		Signals:  res.Meta.Bands,
		Surfaces: res.SurfaceNames(),
	})
}

func (s *Server) handleComposite(w http.ResponseWriter, r *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}

	name := strings.TrimSuffix(r.PathValue("name"), ".png")
	g, ok := res.Surface(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown surface: " + name})
		return
	}

	// Renders are keyed by run generation, so a fresh run ages the old
	// entries out through normal eviction.
	key := fmt.Sprintf("%s|%d", name, res.Meta.GeneratedAt.UnixNano())
	data, cached := s.cache.get(key)
	if cached {
		s.metrics.RenderCache.WithLabelValues("hit").Inc()
	} else {
		s.metrics.RenderCache.WithLabelValues("miss").Inc()
		var err error
		data, err = export.RenderPNG(g, renderScale)
		if err != nil {
			s.logger.Error("surface render failed", "surface", name, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
			return
		}
		s.cache.put(key, data)
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // best-effort image response
}

// latest fetches the newest result, writing the 503 itself when no run has
// completed yet.
func (s *Server) latest(w http.ResponseWriter) (*domain.FusionResult, bool) {
	res, ok := s.results.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no fusion run has completed yet",
		})
		return nil, false
	}
	return res, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
