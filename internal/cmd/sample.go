package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/routemeta/internal/routefile"
	"github.com/MeKo-Tech/routemeta/internal/sample"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write synthetic sample routes",
	Long: `Generate deterministic sample routes as GeoJSON or GPX files, for trying
the analyze command or the API without recorded tracks.`,
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().IntP("count", "n", 1, "Number of routes to write")
	sampleCmd.Flags().Int("points", 100, "Points per route")
	sampleCmd.Flags().Float64("step", 50, "Distance between points in meters")
	sampleCmd.Flags().String("bbox", "", "Bounding box: minLon,minLat,maxLon,maxLat (default: around Berlin)")
	sampleCmd.Flags().Int64("seed", 1337, "Seed of the first route; route i uses seed+i")
	sampleCmd.Flags().String("route-type", "CYCLING", "Route type (CYCLING, WALKING, RUNNING, HIKING, DRIVING)")
	sampleCmd.Flags().Bool("diagonal", false, "Write a straight diagonal line instead of a meandering walk")
	sampleCmd.Flags().String("format", "geojson", "Output format (geojson, gpx)")
	sampleCmd.Flags().StringP("output-dir", "o", "./samples", "Output directory")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"sample.count", "count"},
		{"sample.points", "points"},
		{"sample.step", "step"},
		{"sample.bbox", "bbox"},
		{"sample.seed", "seed"},
		{"sample.route_type", "route-type"},
		{"sample.diagonal", "diagonal"},
		{"sample.format", "format"},
		{"sample.output_dir", "output-dir"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, sampleCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

type sampleOptions struct {
	count     int
	points    int
	step      float64
	bounds    types.BoundingBox
	seed      int64
	routeType types.RouteType
	diagonal  bool
	format    routefile.Format
	outputDir string
}

func runSample(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	opts := sampleOptions{
		count:     viper.GetInt("sample.count"),
		points:    viper.GetInt("sample.points"),
		step:      viper.GetFloat64("sample.step"),
		seed:      viper.GetInt64("sample.seed"),
		diagonal:  viper.GetBool("sample.diagonal"),
		outputDir: viper.GetString("sample.output_dir"),
	}

	if opts.count <= 0 || opts.points <= 0 {
		return fmt.Errorf("--count and --points must be positive")
	}
	var err error
	if bbox := viper.GetString("sample.bbox"); bbox != "" {
		if opts.bounds, err = parseBBox(bbox); err != nil {
			return fmt.Errorf("invalid bbox: %w", err)
		}
	}
	if opts.routeType, err = types.ParseRouteType(viper.GetString("sample.route_type")); err != nil {
		return err
	}
	if opts.format, err = routefile.ParseFormat(viper.GetString("sample.format")); err != nil {
		return err
	}

	paths, err := writeSamples(opts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	logger.Info("Sample routes written", "count", len(paths), "dir", opts.outputDir, "format", opts.format)
	return nil
}

func writeSamples(opts sampleOptions) ([]string, error) {
	paths := make([]string, 0, opts.count)
	for i := 0; i < opts.count; i++ {
		seed := opts.seed + int64(i)

		var points []types.RoutePoint
		if opts.diagonal {
			points = sample.Diagonal(opts.points)
		} else {
			points = sample.Walk(sample.WalkConfig{
				Seed:       seed,
				Points:     opts.points,
				StepMeters: opts.step,
				Bounds:     opts.bounds,
			})
		}

		name := fmt.Sprintf("sample-%d", seed)
		route := &types.Route{
			Name:        name,
			Description: fmt.Sprintf("Synthetic %s route with %d points", strings.ToLower(string(opts.routeType)), opts.points),
			RouteType:   opts.routeType,
			Points:      points,
		}

		path := filepath.Join(opts.outputDir, name+opts.format.Extension())
		if err := routefile.WriteFile(path, route); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// parseBBox parses a bounding box string "minLon,minLat,maxLon,maxLat".
func parseBBox(s string) (types.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.BoundingBox{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var v [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return types.BoundingBox{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		v[i] = val
	}

	bbox := types.BoundingBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if bbox.MinLon >= bbox.MaxLon {
		return types.BoundingBox{}, fmt.Errorf("minLon (%.4f) must be < maxLon (%.4f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat >= bbox.MaxLat {
		return types.BoundingBox{}, fmt.Errorf("minLat (%.4f) must be < maxLat (%.4f)", bbox.MinLat, bbox.MaxLat)
	}
	if err := types.ValidateCoordinate(bbox.MinLat, bbox.MinLon); err != nil {
		return types.BoundingBox{}, err
	}
	if err := types.ValidateCoordinate(bbox.MaxLat, bbox.MaxLon); err != nil {
		return types.BoundingBox{}, err
	}
	return bbox, nil
}
