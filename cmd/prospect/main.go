// Command prospect drives the fusion pipeline from the command line: one-shot
// runs with artifact export, spec inspection, and single-surface rendering
// without standing up the service.
//
// Usage:
//
//	prospect run --spec targets.yaml --out out/
//	prospect targets --spec targets.yaml
//	prospect render combined --out combined.png
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terralens/prospect-fusion/internal/config"
	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/export"
	"github.com/terralens/prospect-fusion/internal/observability"
	"github.com/terralens/prospect-fusion/internal/pipeline"
	"github.com/terralens/prospect-fusion/internal/provider"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	specPath  string
	scenePath string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "prospect",
		Short:         "Prospectivity fusion over multi-source raster scenes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.specPath, "spec", "s", "targets.yaml", "fusion spec path")
	pf.StringVar(&opts.scenePath, "scene", "", "scene file path (synthetic scenes when empty)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd(opts), newTargetsCmd(opts), newRenderCmd(opts))
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one fusion run and write the artifact set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newCLILogger(opts.logLevel)
			res, err := runFusion(cmd, opts, logger)
			if err != nil {
				return err
			}
			if err := export.New(outDir, logger).WriteArtifacts(res); err != nil {
				return err
			}
			printRunSummary(cmd.OutOrStdout(), res, outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "artifact output directory")
	return cmd
}

func newTargetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Validate the fusion spec and summarize its targets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, warnings, err := config.LoadSpec(opts.specPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "=== Fusion spec: %s ===\n\n", opts.specPath)
			fmt.Fprintf(out, "Grid: %dx%d cells, seed %d\n", spec.Grid.Width, spec.Grid.Height, spec.Seed)
			start, end := spec.TimeWindow()
			fmt.Fprintf(out, "Window: %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
			b := spec.Bound()
			fmt.Fprintf(out, "AOI: lon %.4f to %.4f, lat %.4f to %.4f\n\n", b.Min[0], b.Max[0], b.Min[1], b.Max[1])

			fmt.Fprintf(out, "  %-14s %-10s %-10s %-12s %s\n", "TARGET", "CATEGORY", "THRESHOLD", "MAX_REGIONS", "WEIGHT_SUM")
			for _, t := range spec.Targets {
				fmt.Fprintf(out, "  %-14s %-10s %-10.2f %-12d %.3f\n",
					t.ID, t.Category, t.Threshold, t.MaxRegions, domain.WeightSum(t.Weights))
			}

			if len(warnings) == 0 {
				fmt.Fprintf(out, "\n\033[32mSpec OK\033[0m: %d targets\n", len(spec.Targets))
				return nil
			}
			fmt.Fprintf(out, "\n\033[33m%d warning(s)\033[0m:\n", len(warnings))
			for i, w := range warnings {
				fmt.Fprintf(out, "  [%d] %s\n", i+1, w)
			}
			return nil
		},
	}
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var outPath string
	var scale int

	cmd := &cobra.Command{
		Use:   "render <surface>",
		Short: "Run fusion and render one surface as a PNG heatmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newCLILogger(opts.logLevel)
			res, err := runFusion(cmd, opts, logger)
			if err != nil {
				return err
			}

			name := strings.TrimSuffix(args[0], ".png")
			g, ok := res.Surface(name)
			if !ok {
				return fmt.Errorf("unknown surface %q (have: %s)", name, strings.Join(res.SurfaceNames(), ", "))
			}

			data, err := export.RenderPNG(g, scale)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d cells at scale %d)\n", outPath, g.Width, g.Height, scale)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "surface.png", "output PNG path")
	cmd.Flags().IntVar(&scale, "scale", 4, "upscale factor")
	return cmd
}

// runFusion loads the spec and executes a single run with the command's
// context, so Ctrl-C aborts cleanly mid-run.
func runFusion(cmd *cobra.Command, opts *rootOptions, logger *slog.Logger) (*domain.FusionResult, error) {
	spec, warnings, err := config.LoadSpec(opts.specPath)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("fusion spec warning", "warning", w)
	}

	var loader pipeline.SceneLoader
	if opts.scenePath != "" {
		loader = provider.NewFile(opts.scenePath, logger)
	} else {
		loader = provider.NewSynthetic(logger)
	}

	runner := pipeline.New(loader, spec, logger, observability.NewMetrics())
	return runner.Run(cmd.Context())
}

func printRunSummary(w io.Writer, res *domain.FusionResult, dir string) {
	fmt.Fprintf(w, "\n=== Fusion run summary ===\n")
	fmt.Fprintf(w, "Sources available: %d/%d\n", res.Meta.AssetsPresent, res.Meta.SourceCount)
	fmt.Fprintf(w, "AOI area: %.1f sq km\n", res.Meta.AOIAreaSqKm)
	fmt.Fprintf(w, "Regions: %d\n", len(res.Regions))

	if len(res.Regions) > 0 {
		fmt.Fprintf(w, "\n  %-4s %-14s %-8s %-9s %s\n", "RANK", "TARGET", "SCORE", "AREA_KM2", "CENTROID")
		for _, rec := range res.Regions {
			fmt.Fprintf(w, "  %-4d %-14s %-8.4f %-9.2f %.4f, %.4f\n",
				rec.Rank, rec.TargetID, rec.MeanScore, rec.AreaM2/1e6, rec.CentroidLon, rec.CentroidLat)
		}
	}
	fmt.Fprintf(w, "\nArtifacts written to %s\n", dir)
}

// newCLILogger builds a stderr logger so command output on stdout stays
// machine-readable.
func newCLILogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
