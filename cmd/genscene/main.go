// Command genscene generates a deterministic scene fixture from the
// synthetic provider and exports it in the scene file format. It uses the
// actual provider so the fixture matches live pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genscene -spec targets.yaml -out data/scene.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"

	"github.com/terralens/prospect-fusion/internal/config"
	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/provider"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	specPath := flag.String("spec", "targets.yaml", "fusion spec providing the AOI, grid, and window")
	out := flag.String("out", "", "output path for the scene fixture")
	seed := flag.Int64("seed", 0, "seed override (spec seed when 0)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	spec, warnings, err := config.LoadSpec(*specPath)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}
	for _, w := range warnings {
		log.Printf("spec warning: %s", w)
	}

	if *seed == 0 {
		*seed = spec.Seed
	}
	start, end := spec.TimeWindow()
	req := provider.Request{
		AOI:    spec.Polygon(),
		Width:  spec.Grid.Width,
		Height: spec.Grid.Height,
		Start:  start,
		End:    end,
		Seed:   *seed,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scene, err := provider.NewSynthetic(logger).LoadScene(context.Background(), req)
	if err != nil {
		return fmt.Errorf("generating scene: %w", err)
	}

	if err := provider.WriteScene(*out, scene, *seed); err != nil {
		return fmt.Errorf("writing scene: %w", err)
	}
	log.Printf("wrote scene fixture: %s (%dx%d, seed %d)", *out, scene.Width, scene.Height, *seed)

	printStats(scene)
	return nil
}

// printStats reports per-source band ranges so provider test assertions can
// be updated against regenerated fixtures.
func printStats(scene *domain.Scene) {
	fmt.Println("\n=== Stats for updating test assertions ===")

	available := 0
	for _, l := range scene.Layers {
		if l.Available() {
			available++
		}
	}
	fmt.Printf("Sources: %d/%d available\n", available, len(scene.Layers))

	for _, l := range scene.Layers {
		if !l.Available() {
			fmt.Printf("\n%s: placeholder (%s)\n", l.SourceID, l.Reason)
			continue
		}
		fmt.Printf("\n%s:\n", l.SourceID)
		for _, b := range l.Image.Bands {
			lo, hi, mean := bandStats(b.Values)
			fmt.Printf("  %-6s min=%.4f max=%.4f mean=%.4f\n", b.Band, lo, hi, mean)
		}
	}
}

func bandStats(values []float64) (lo, hi, mean float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	sum := 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	if len(values) > 0 {
		mean = sum / float64(len(values))
	}
	return lo, hi, mean
}
