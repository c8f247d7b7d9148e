package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/routemeta/internal/classifier"
	"github.com/MeKo-Tech/routemeta/internal/config"
	"github.com/MeKo-Tech/routemeta/internal/datasource"
	"github.com/MeKo-Tech/routemeta/internal/pipeline"
	"github.com/MeKo-Tech/routemeta/internal/routefile"
	"github.com/MeKo-Tech/routemeta/internal/sample"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

func TestParseBBox(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.BoundingBox
		wantErr bool
	}{
		{
			name:  "valid bbox",
			input: "9.7,52.3,9.9,52.4",
			want:  types.BoundingBox{MinLon: 9.7, MinLat: 52.3, MaxLon: 9.9, MaxLat: 52.4},
		},
		{
			name:  "valid bbox with spaces",
			input: "9.7, 52.3, 9.9, 52.4",
			want:  types.BoundingBox{MinLon: 9.7, MinLat: 52.3, MaxLon: 9.9, MaxLat: 52.4},
		},
		{
			name:  "negative coordinates",
			input: "-122.5,37.7,-122.3,37.9",
			want:  types.BoundingBox{MinLon: -122.5, MinLat: 37.7, MaxLon: -122.3, MaxLat: 37.9},
		},
		{name: "too few values", input: "9.7,52.3,9.9", wantErr: true},
		{name: "too many values", input: "9.7,52.3,9.9,52.4,10.0", wantErr: true},
		{name: "invalid number", input: "abc,52.3,9.9,52.4", wantErr: true},
		{name: "minLon >= maxLon", input: "10.0,52.3,9.9,52.4", wantErr: true},
		{name: "minLat >= maxLat", input: "9.7,52.5,9.9,52.4", wantErr: true},
		{name: "latitude out of range", input: "9.7,52.3,9.9,91", wantErr: true},
		{name: "longitude out of range", input: "-181,52.3,9.9,52.4", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBBox(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "json", true).Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	l := newLogger(&buf, "text", false)
	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0m00s", formatSeconds(0))
	assert.Equal(t, "9m56s", formatSeconds(596))
	assert.Equal(t, "1h02m", formatSeconds(3725))
}

func TestWriteSamplesAndConvert(t *testing.T) {
	dir := t.TempDir()
	paths, err := writeSamples(sampleOptions{
		count:     2,
		points:    20,
		step:      50,
		seed:      7,
		routeType: types.RouteTypeWalking,
		format:    routefile.FormatGPX,
		outputDir: dir,
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "sample-7.gpx"), paths[0])
	assert.Equal(t, filepath.Join(dir, "sample-8.gpx"), paths[1])

	found, err := scanRouteDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, paths, found)

	out, err := convertFile(paths[0], "", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sample-7.geojson"), out)

	route, err := routefile.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, route.Points, 20)

	// explicit output with the wrong extension follows the target
	out, err = convertFile(out, filepath.Join(dir, "back.geojson"), routefile.FormatGPX)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "back.gpx"), out)

	_, err = convertFile(paths[0], paths[0], routefile.FormatGPX)
	assert.Error(t, err)

	_, err = convertFile(filepath.Join(dir, "route.kml"), "", "")
	assert.Error(t, err)
}

func TestScanRouteDirectoryIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	for _, name := range []string{"b.gpx", "nested/a.geojson", "notes.txt", "c.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := scanRouteDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.gpx"),
		filepath.Join(dir, "c.json"),
		filepath.Join(dir, "nested/a.geojson"),
	}, files)
}

func newTestEngine() *pipeline.Engine {
	src := datasource.StaticWaySource{Tags: map[string]string{"highway": "cycleway"}}
	return pipeline.NewEngine(classifier.NewTagged(src, nil, nil), pipeline.Config{Workers: 2})
}

func TestAnalyzeFiles(t *testing.T) {
	logger = newLogger(io.Discard, "text", false)

	dir := t.TempDir()
	paths, err := writeSamples(sampleOptions{
		count:     2,
		points:    10,
		routeType: types.RouteTypeCycling,
		diagonal:  true,
		format:    routefile.FormatGeoJSON,
		outputDir: dir,
	})
	require.NoError(t, err)

	broken := filepath.Join(dir, "broken.geojson")
	require.NoError(t, os.WriteFile(broken, []byte("not json"), 0o644))

	outDir := filepath.Join(dir, "out")
	results, failed := analyzeFiles(context.Background(), newTestEngine(),
		append(paths, broken), analyzeOptions{workers: 2, outputDir: outDir, format: "json"})

	assert.Equal(t, 1, failed)
	require.Len(t, results, 2)
	for i, a := range results {
		assert.Equal(t, paths[i], a.Path)
		require.Len(t, a.Result.Segments, 1)
		assert.Equal(t, "BIKE_PATH", a.Result.Segments[0].RoadType)
		assert.NotEmpty(t, a.Route.Metadata)
		assert.FileExists(t, a.Output)
		assert.True(t, strings.HasSuffix(a.Output, ".route.json"))
	}

	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, results))
	out := buf.String()
	assert.Contains(t, out, "sample-0: 10 points")
	assert.Contains(t, out, "BIKE_PATH")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "written to "+results[0].Output)
}

func TestWriteAnnotatedAvoidsOverwritingInput(t *testing.T) {
	dir := t.TempDir()
	route := &types.Route{Name: "loop", RouteType: types.RouteTypeCycling, Points: sample.Diagonal(3)}
	input := filepath.Join(dir, "loop.gpx")
	require.NoError(t, routefile.WriteFile(input, route))

	out, err := writeAnnotated(route, input, dir, "gpx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "loop.annotated.gpx"), out)

	out, err = writeAnnotated(route, input, dir, "geojson")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "loop.geojson"), out)
}

func loadTestConfig(t *testing.T, settings map[string]any) config.Config {
	t.Helper()
	v := viper.New()
	v.Set("data-source", "synthetic")
	for k, val := range settings {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func TestNewEngineRuntime(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name      string
		settings  map[string]any
		wantCache bool
	}{
		{name: "no cache", settings: map[string]any{"cache.backend": "none"}},
		{name: "memory", settings: map[string]any{"cache.backend": "memory"}, wantCache: true},
		{
			name: "sqlite",
			settings: map[string]any{
				"cache.backend":     "sqlite",
				"cache.sqlite_path": filepath.Join(t.TempDir(), "cache.db"),
			},
			wantCache: true,
		},
		{
			name:      "redis",
			settings:  map[string]any{"cache.backend": "redis", "cache.redis_addr": mr.Addr()},
			wantCache: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := loadTestConfig(t, tt.settings)
			rt, err := newEngineRuntime(ctx, cfg, newLogger(io.Discard, "text", false))
			require.NoError(t, err)

			assert.Equal(t, "synthetic", rt.source.Name())
			assert.Equal(t, tt.wantCache, rt.cached != nil)

			route := &types.Route{RouteType: types.RouteTypeCycling, Points: sample.Diagonal(5)}
			res, err := rt.engine.Annotate(ctx, route)
			require.NoError(t, err)
			assert.NotEmpty(t, res.Segments)

			if rt.cached != nil {
				st := rt.cached.Status(ctx)
				assert.Equal(t, int64(5), st.Misses)
			}
			assert.NoError(t, rt.Close())
		})
	}
}

func TestNewEngineRuntimeRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := loadTestConfig(t, map[string]any{"cache.backend": "redis", "cache.redis_addr": addr})
	_, err := newEngineRuntime(context.Background(), cfg, newLogger(io.Discard, "text", false))
	assert.Error(t, err)
}
