package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/routemeta/internal/pipeline"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/routefile"
	"github.com/MeKo-Tech/routemeta/internal/types"
	"github.com/MeKo-Tech/routemeta/internal/worker"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <route files...>",
	Short: "Compute road-type metadata for route files",
	Long: `Classify the points of GeoJSON or GPX route files, segment them by road type
and print per-type statistics. With --output-dir the annotated routes are
written next to the summary.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntP("workers", "w", 0, "Number of files analyzed in parallel (default: number of CPUs)")
	analyzeCmd.Flags().Bool("progress", true, "Show progress while analyzing several files")
	analyzeCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some files fail")
	analyzeCmd.Flags().String("mode", "", "Travel mode override (cycling, pedestrian, driving); default follows the route type")
	analyzeCmd.Flags().String("output-dir", "", "Write annotated routes to this directory")
	analyzeCmd.Flags().String("format", "json", "Output format for annotated routes (json, geojson, gpx)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"analyze.workers", "workers"},
		{"analyze.progress", "progress"},
		{"analyze.allow_failures", "allow-failures"},
		{"analyze.mode", "mode"},
		{"analyze.output_dir", "output-dir"},
		{"analyze.format", "format"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, analyzeCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// analysis is the outcome for one route file.
type analysis struct {
	Path   string
	Route  *types.Route
	Result *pipeline.Result
	// Output is the annotated file, if one was written.
	Output string
}

type analyzeOptions struct {
	workers       int
	showProgress  bool
	allowFailures bool
	mode          roadtype.TravelMode
	outputDir     string
	format        string
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := analyzeOptions{
		workers:       viper.GetInt("analyze.workers"),
		showProgress:  viper.GetBool("analyze.progress"),
		allowFailures: viper.GetBool("analyze.allow_failures"),
		outputDir:     viper.GetString("analyze.output_dir"),
		format:        strings.ToLower(viper.GetString("analyze.format")),
	}
	if m := viper.GetString("analyze.mode"); m != "" {
		if opts.mode, err = roadtype.ParseTravelMode(m); err != nil {
			return err
		}
	}
	if opts.format != "json" {
		if _, err := routefile.ParseFormat(opts.format); err != nil {
			return fmt.Errorf("invalid format %q: must be json, geojson or gpx", opts.format)
		}
	}
	if opts.workers <= 0 {
		opts.workers = runtime.NumCPU()
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	rt, err := newEngineRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}()

	logger.Info("Starting route analysis",
		"files", len(args),
		"workers", opts.workers,
		"data_source", rt.source.Name(),
		"cache", cfg.Cache.Backend,
		"output_dir", opts.outputDir,
	)

	results, failed := analyzeFiles(ctx, rt.engine, args, opts)

	if err := writeSummary(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if rt.cached != nil {
		st := rt.cached.Status(ctx)
		logger.Debug("cache status", "hits", st.Hits, "misses", st.Misses, "errors", st.Errors, "entries", st.Entries)
	}

	if failed > 0 {
		if opts.allowFailures {
			logger.Warn("Some files failed to analyze, but continuing due to --allow-failures flag", "failed_count", failed)
			return nil
		}
		return fmt.Errorf("%d route files failed to analyze", failed)
	}
	return nil
}

// analyzeFiles runs one task per file on the worker pool and returns the
// successful analyses in argument order.
func analyzeFiles(ctx context.Context, engine *pipeline.Engine, paths []string, opts analyzeOptions) ([]analysis, int) {
	progress := worker.NewProgress(len(paths), "routes", opts.showProgress && len(paths) > 1)

	pool := worker.New(worker.Config[string, analysis]{
		Workers:    opts.workers,
		OnProgress: progress.Callback(),
		Func: func(ctx context.Context, path string) (analysis, error) {
			return analyzeFile(ctx, engine, path, opts)
		},
	})

	results := pool.Run(ctx, paths)
	progress.Done()

	var (
		out    []analysis
		failed int
	)
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("Route analysis failed", "path", r.Task, "error", r.Err)
			continue
		}
		out = append(out, r.Value)
	}

	if len(paths) > 1 {
		logger.Info(progress.Summary())
	}
	return out, failed
}

func analyzeFile(ctx context.Context, engine *pipeline.Engine, path string, opts analyzeOptions) (analysis, error) {
	route, err := routefile.ReadFile(path)
	if err != nil {
		return analysis{}, err
	}

	mode := opts.mode
	if mode == "" {
		mode = roadtype.ModeForRouteType(route.RouteType)
	}
	res, err := engine.AnnotateMode(ctx, route, mode)
	if err != nil {
		return analysis{}, err
	}

	a := analysis{Path: path, Route: route, Result: res}
	if opts.outputDir != "" {
		out, err := writeAnnotated(route, path, opts.outputDir, opts.format)
		if err != nil {
			return analysis{}, err
		}
		a.Output = out
	}

	logger.Debug("Route analyzed",
		"path", path,
		"points", len(route.Points),
		"segments", len(res.Segments),
		"distance_m", res.TotalDistance,
		"ms", res.Elapsed.Milliseconds())
	return a, nil
}

// writeAnnotated stores route under dir using the input base name.
func writeAnnotated(route *types.Route, input, dir, format string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	if format == "json" {
		path := filepath.Join(dir, base+".route.json")
		data, err := json.MarshalIndent(route, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal route: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		return path, nil
	}

	f, err := routefile.ParseFormat(format)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, base+f.Extension())
	if filepath.Clean(path) == filepath.Clean(input) {
		path = filepath.Join(dir, base+".annotated"+f.Extension())
	}
	return path, routefile.WriteFile(path, route)
}

// writeSummary prints one block per route with its road-type breakdown.
func writeSummary(w io.Writer, results []analysis) error {
	for _, a := range results {
		res := a.Result
		name := a.Route.Name
		if name == "" {
			name = a.Path
		}
		degraded := ""
		if res.Degraded {
			degraded = fmt.Sprintf(" (degraded, %d unresolved)", res.Unresolved)
		}
		if _, err := fmt.Fprintf(w, "%s: %d points, %.0f m, ~%s %s, %d road types%s\n",
			name, len(a.Route.Points), res.TotalDistance,
			formatSeconds(res.EstimatedDuration), res.Mode, res.Stats.TotalTypes, degraded); err != nil {
			return err
		}
		for _, b := range res.Stats.Breakdown {
			if _, err := fmt.Fprintf(w, "  %-16s %6s%%  %8.0f m  %d segments\n",
				b.RoadType, b.Percentage, b.Distance, b.SegmentCount); err != nil {
				return err
			}
		}
		if a.Output != "" {
			if _, err := fmt.Fprintf(w, "  written to %s\n", a.Output); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatSeconds(s float64) string {
	total := int(s + 0.5)
	h, m := total/3600, (total%3600)/60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm%02ds", m, total%60)
}
