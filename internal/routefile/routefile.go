// Package routefile reads and writes routes as GeoJSON and GPX.
package routefile

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

// Format is a route file format.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatGPX     Format = "gpx"
)

// ErrUnsupportedFormat is returned for unknown file extensions or content types.
var ErrUnsupportedFormat = errors.New("unsupported route file format")

// Detect picks the format from a file name extension.
func Detect(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".gpx":
		return FormatGPX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

// ParseFormat accepts a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "gpx":
		return FormatGPX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatForContentType maps an HTTP content type to a format.
func FormatForContentType(contentType string) (Format, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mt {
	case "application/geo+json", "application/vnd.geo+json":
		return FormatGeoJSON, true
	case "application/gpx+xml", "application/gpx":
		return FormatGPX, true
	}
	return "", false
}

// ContentType returns the media type written for f.
func (f Format) ContentType() string {
	if f == FormatGPX {
		return "application/gpx+xml"
	}
	return "application/geo+json"
}

// Extension returns the file extension of f, including the dot.
func (f Format) Extension() string {
	if f == FormatGPX {
		return ".gpx"
	}
	return ".geojson"
}

// Decode parses data in the given format.
func Decode(f Format, data []byte) (*types.Route, error) {
	var (
		route *types.Route
		err   error
	)
	switch f {
	case FormatGeoJSON:
		route, err = DecodeGeoJSON(data)
	case FormatGPX:
		route, err = DecodeGPX(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, err
	}
	if len(route.Points) == 0 {
		return nil, types.ErrNoPoints
	}
	types.NormalizePointTypes(route.Points)
	if route.RouteType == "" {
		route.RouteType = types.RouteTypeCycling
	}
	return route, nil
}

// Encode writes route in the given format.
func Encode(f Format, route *types.Route) ([]byte, error) {
	switch f {
	case FormatGeoJSON:
		return EncodeGeoJSON(route)
	case FormatGPX:
		return EncodeGPX(route)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// ReadFile decodes the route file at path. Routes without a name are named
// after the file.
func ReadFile(path string) (*types.Route, error) {
	f, err := Detect(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	route, err := Decode(f, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if route.Name == "" {
		route.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return route, nil
}

// WriteFile encodes route into path, picking the format from its extension.
func WriteFile(path string, route *types.Route) error {
	f, err := Detect(path)
	if err != nil {
		return err
	}
	data, err := Encode(f, route)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
