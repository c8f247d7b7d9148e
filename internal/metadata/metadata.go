// Package metadata encodes and decodes the route metadata blob.
//
// The blob is a JSON object stored as a string on the route. Road-type data
// is derived and recomputed on every route change; the address, waypoint and
// tag fields belong to the client and survive recomputation.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

// Version is the schema version written by Encode.
const Version = 1

// Metadata is the route metadata envelope.
type Metadata struct {
	Version                int                     `json:"version"`
	RoadTypeSegments       []types.RoadTypeSegment `json:"roadTypeSegments"`
	RoadTypeStats          *types.RoadTypeStats    `json:"roadTypeStats,omitempty"`
	ClassificationDegraded bool                    `json:"classificationDegraded,omitempty"`
	TravelMode             string                  `json:"travelMode,omitempty"`

	AverageSpeed *float64 `json:"averageSpeed,omitempty"`
	MaxElevation *float64 `json:"maxElevation,omitempty"`
	MinElevation *float64 `json:"minElevation,omitempty"`
	StartAddress string   `json:"startAddress,omitempty"`
	EndAddress   string   `json:"endAddress,omitempty"`
	Waypoints    []string `json:"waypoints,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// HasRoadTypes reports whether m carries road-type data.
func (m Metadata) HasRoadTypes() bool {
	return len(m.RoadTypeSegments) > 0 || m.RoadTypeStats != nil
}

// State describes how a blob decoded.
type State int

const (
	// StateOK means road-type data was decoded.
	StateOK State = iota
	// StateAbsent means the blob is empty or has no road-type data.
	StateAbsent
	// StateCorrupt means the blob or its road-type fields could not be decoded.
	StateCorrupt
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateAbsent:
		return "absent"
	case StateCorrupt:
		return "corrupt"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Message is the text a display shows instead of road-type statistics.
func (s State) Message() string {
	switch s {
	case StateOK:
		return ""
	case StateAbsent:
		return "No road type data available"
	default:
		return "Unable to load road type data"
	}
}

// MarshalText lets State appear as a string in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Encode serializes m with the current schema version.
func Encode(m Metadata) (string, error) {
	m.Version = Version
	if m.RoadTypeSegments == nil {
		m.RoadTypeSegments = []types.RoadTypeSegment{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

// Decode parses a blob. It never fails: unreadable input yields empty
// metadata and StateCorrupt. Fields are decoded one by one, so a broken
// auxiliary field is dropped without losing the road-type data.
func Decode(raw string) (Metadata, State) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Metadata{}, StateAbsent
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Metadata{}, StateCorrupt
	}

	var m Metadata
	decodeField(fields, "version", &m.Version)
	decodeField(fields, "classificationDegraded", &m.ClassificationDegraded)
	decodeField(fields, "travelMode", &m.TravelMode)
	decodeField(fields, "averageSpeed", &m.AverageSpeed)
	decodeField(fields, "maxElevation", &m.MaxElevation)
	decodeField(fields, "minElevation", &m.MinElevation)
	decodeField(fields, "startAddress", &m.StartAddress)
	decodeField(fields, "endAddress", &m.EndAddress)
	decodeField(fields, "waypoints", &m.Waypoints)
	decodeField(fields, "tags", &m.Tags)

	segsOK := decodeField(fields, "roadTypeSegments", &m.RoadTypeSegments)
	statsOK := decodeField(fields, "roadTypeStats", &m.RoadTypeStats)

	switch {
	case !segsOK || !statsOK:
		return m, StateCorrupt
	case !m.HasRoadTypes():
		return m, StateAbsent
	}
	return m, StateOK
}

// decodeField unmarshals fields[name] into dst. dst is left untouched when
// the field is missing, null or malformed; the result is false only for
// malformed values.
func decodeField[T any](fields map[string]json.RawMessage, name string, dst *T) bool {
	raw, ok := fields[name]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return true
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	*dst = v
	return true
}
