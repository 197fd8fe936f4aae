// Package pipeline orchestrates a fusion run: scene assembly, signal
// derivation, composite stacking, confidence scoring, and region
// extraction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/terralens/prospect-fusion/internal/config"
	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/observability"
	"github.com/terralens/prospect-fusion/internal/provider"
	"github.com/terralens/prospect-fusion/internal/raster"
)

// SceneLoader assembles the co-registered source stack for a request.
type SceneLoader interface {
	LoadScene(ctx context.Context, req provider.Request) (*domain.Scene, error)
}

// Runner executes fusion runs against a loaded spec.
type Runner struct {
	loader  SceneLoader
	spec    *config.FusionSpec
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Runner with the given scene source and observability.
func New(loader SceneLoader, spec *config.FusionSpec, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		loader:  loader,
		spec:    spec,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes one complete fusion cycle and returns its result. Source
// outages degrade the result rather than failing it; only scene loading
// errors and cancellation abort a run.
func (r *Runner) Run(ctx context.Context) (*domain.FusionResult, error) {
	start := time.Now()
	r.metrics.FusionRunning.Set(1)
	defer r.metrics.FusionRunning.Set(0)

	winStart, winEnd := r.spec.TimeWindow()
	r.logger.Info("fusion run started",
		"targets", len(r.spec.Targets),
		"grid_width", r.spec.Grid.Width,
		"grid_height", r.spec.Grid.Height,
		"window_start", winStart.Format("2006-01-02"),
		"window_end", winEnd.Format("2006-01-02"),
		"seed", r.spec.Seed)

	scene, err := r.loader.LoadScene(ctx, provider.Request{
		AOI:    r.spec.Polygon(),
		Width:  r.spec.Grid.Width,
		Height: r.spec.Grid.Height,
		Start:  winStart,
		End:    winEnd,
		Seed:   r.spec.Seed,
	})
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues(outcomeFor(err)).Inc()
		return nil, fmt.Errorf("load scene: %w", err)
	}
	for _, l := range scene.Layers {
		r.metrics.SourcesLoaded.WithLabelValues(l.SourceID, l.Status).Inc()
		if !l.Available() {
			r.logger.Warn("source unavailable, using placeholder",
				"source", l.SourceID, "reason", l.Reason)
		}
	}

	if err := ctx.Err(); err != nil {
		r.metrics.RunsTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	signals := domain.DeriveSignals(scene, r.spec.Divisors, r.spec.SampleStride)
	r.logger.Info("signals derived", "count", len(signals))

	composites := r.buildComposites(signals)
	availability := domain.AggregateAvailability(scene)
	confidence := domain.ConfidenceSurface(composites, availability)
	fused := domain.FuseComposites(composites)

	if err := ctx.Err(); err != nil {
		r.metrics.RunsTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	regions := r.extractAll(composites, fused, confidence, signals)
	meta := domain.BuildMetadata(scene, regions, r.spec.Seed)
	r.metrics.DataAvailability.Set(meta.DataAvailabilityMean)

	result := &domain.FusionResult{
		Signals:      signals,
		Composites:   composites,
		Fused:        fused,
		Confidence:   confidence,
		Availability: availability,
		Report:       domain.AvailabilityReport(scene),
		Regions:      regions,
		Meta:         meta,
	}

	r.metrics.RunsTotal.WithLabelValues("completed").Inc()
	r.metrics.RunDuration.Observe(time.Since(start).Seconds())
	r.logger.Info("fusion run completed",
		"duration", time.Since(start),
		"regions", len(regions),
		"data_availability", meta.DataAvailabilityMean)
	return result, nil
}

// buildComposites stacks every target in parallel. Each goroutine writes
// only its own slot, and the slice order follows the spec's target order
// regardless of completion order.
func (r *Runner) buildComposites(signals map[string]*raster.Grid) []*raster.Grid {
	composites := make([]*raster.Grid, len(r.spec.Targets))
	var wg sync.WaitGroup
	for i, t := range r.spec.Targets {
		wg.Add(1)
		go func(i int, t config.TargetSpec) {
			defer wg.Done()
			composites[i] = domain.BuildComposite(t.ID, signals, t.Weights)
		}(i, t)
	}
	wg.Wait()
	return composites
}

// extractJob is one extraction unit: a surface plus its options.
type extractJob struct {
	targetID string
	grid     *raster.Grid
	opts     domain.ExtractOptions
}

// extractAll runs region extraction for every target composite, plus the
// combined and confidence surfaces when the spec asks for them. Jobs run in
// parallel but the returned records keep spec order, each block already
// ranked within its target.
func (r *Runner) extractAll(composites []*raster.Grid, fused, confidence *raster.Grid, signals map[string]*raster.Grid) []domain.RegionRecord {
	jobs := make([]extractJob, 0, len(composites)+2)
	for i, t := range r.spec.Targets {
		jobs = append(jobs, extractJob{
			targetID: t.ID,
			grid:     composites[i],
			opts: domain.ExtractOptions{
				Threshold:       t.Threshold,
				MaxRegions:      t.MaxRegions,
				Category:        t.Category,
				AttributeStride: r.spec.AttributeStride,
				DepthBase:       r.spec.DepthBase,
			},
		})
	}
	if r.spec.ExtractFused && fused != nil {
		jobs = append(jobs, extractJob{
			targetID: fused.Band,
			grid:     fused,
			opts: domain.ExtractOptions{
				Category:        "combined",
				AttributeStride: r.spec.AttributeStride,
				DepthBase:       r.spec.DepthBase,
			},
		})
	}
	if r.spec.ExtractConfidence && confidence != nil {
		jobs = append(jobs, extractJob{
			targetID: confidence.Band,
			grid:     confidence,
			opts: domain.ExtractOptions{
				Category:        "confidence",
				AttributeStride: r.spec.AttributeStride,
				DepthBase:       r.spec.DepthBase,
			},
		})
	}

	results := make([][]domain.RegionRecord, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job extractJob) {
			defer wg.Done()
			results[i] = domain.ExtractRegions(job.targetID, job.grid, signals, job.opts)
		}(i, job)
	}
	wg.Wait()

	var regions []domain.RegionRecord
	for i, rs := range results {
		r.metrics.RegionsExtracted.WithLabelValues(jobs[i].targetID).Add(float64(len(rs)))
		r.logger.Info("regions extracted", "target", jobs[i].targetID, "count", len(rs))
		regions = append(regions, rs...)
	}
	return regions
}

func outcomeFor(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "failed"
}
