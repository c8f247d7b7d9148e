package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/routemeta/internal/types"
)

func sampleDerived() Derived {
	segs := []types.RoadTypeSegment{{
		RoadType:    "BIKE_PATH",
		StartIndex:  0,
		EndIndex:    1,
		Distance:    2485.3,
		Color:       "#2E7D32",
		Coordinates: [][2]float64{{13.404954, 52.520008}, {13.377704, 52.516275}},
		Surface:     "asphalt",
		OSMData:     &types.OSMData{Highway: "cycleway", Name: "Unter den Linden"},
	}}
	return Derived{
		Segments: segs,
		Stats: types.RoadTypeStats{
			Breakdown:     []types.RoadTypeStat{{RoadType: "BIKE_PATH", Distance: 2485.3, Percentage: "100.0", SegmentCount: 1, Color: "#2E7D32"}},
			TotalDistance: 2485.3,
			TotalTypes:    1,
		},
		TravelMode:   "cycling",
		AverageSpeed: 15,
	}
}

func TestEncodeDecode(t *testing.T) {
	raw, err := Assemble("", sampleDerived())
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &generic))
	assert.Contains(t, generic, "roadTypeSegments")
	assert.Contains(t, generic, "roadTypeStats")
	assert.EqualValues(t, Version, generic["version"])

	m, state := Decode(raw)
	assert.Equal(t, StateOK, state)
	require.Len(t, m.RoadTypeSegments, 1)
	assert.Equal(t, "BIKE_PATH", m.RoadTypeSegments[0].RoadType)
	assert.Equal(t, "Unter den Linden", m.RoadTypeSegments[0].OSMData.Name)
	require.NotNil(t, m.RoadTypeStats)
	assert.Equal(t, "100.0", m.RoadTypeStats.Breakdown[0].Percentage)
	require.NotNil(t, m.AverageSpeed)
	assert.Equal(t, 15.0, *m.AverageSpeed)
}

func TestDecode_Absent(t *testing.T) {
	for _, raw := range []string{"", "   ", "null", "{}", `{"startAddress":"Berlin"}`} {
		m, state := Decode(raw)
		assert.Equal(t, StateAbsent, state, "input %q", raw)
		assert.False(t, m.HasRoadTypes())
	}
}

func TestDecode_Corrupt(t *testing.T) {
	for _, raw := range []string{"{not json", "[1,2,3]", `"text"`, "42"} {
		m, state := Decode(raw)
		assert.Equal(t, StateCorrupt, state, "input %q", raw)
		assert.Equal(t, Metadata{}, m)
		assert.Equal(t, "Unable to load road type data", state.Message())
	}
}

func TestDecode_BrokenAuxiliaryFieldKeepsRoadTypes(t *testing.T) {
	raw := `{
		"roadTypeSegments":[{"roadType":"TRAIL","startIndex":0,"endIndex":2,"distance":10,"color":"#795548","coordinates":[[1,2],[3,4]]}],
		"roadTypeStats":{"breakdown":[{"roadType":"TRAIL","distance":10,"percentage":"100.0","segmentCount":1,"color":"#795548"}],"totalDistance":10,"totalTypes":1},
		"tags":"not-a-list",
		"averageSpeed":"fast",
		"startAddress":"Alexanderplatz"
	}`

	m, state := Decode(raw)
	assert.Equal(t, StateOK, state)
	require.Len(t, m.RoadTypeSegments, 1)
	assert.Equal(t, "TRAIL", m.RoadTypeSegments[0].RoadType)
	assert.Nil(t, m.Tags)
	assert.Nil(t, m.AverageSpeed)
	assert.Equal(t, "Alexanderplatz", m.StartAddress)
}

func TestDecode_BrokenElevationsAreDropped(t *testing.T) {
	m, state := Decode(`{
		"roadTypeSegments":[{"roadType":"TRAIL","startIndex":0,"endIndex":1}],
		"roadTypeStats":{"breakdown":[],"totalDistance":0,"totalTypes":0},
		"maxElevation":{"a":1},
		"minElevation":"low",
		"averageSpeed":12.5
	}`)
	assert.Equal(t, StateOK, state)
	assert.Nil(t, m.MaxElevation)
	assert.Nil(t, m.MinElevation)
	require.NotNil(t, m.AverageSpeed)
	assert.InDelta(t, 12.5, *m.AverageSpeed, 1e-9)
}

func TestDecode_BrokenRoadTypeField(t *testing.T) {
	m, state := Decode(`{"roadTypeSegments":"oops","roadTypeStats":{"breakdown":[],"totalDistance":0,"totalTypes":0},"endAddress":"Potsdam"}`)
	assert.Equal(t, StateCorrupt, state)
	assert.Nil(t, m.RoadTypeSegments)
	assert.NotNil(t, m.RoadTypeStats)
	assert.Equal(t, "Potsdam", m.EndAddress)
}

func TestAssemble_KeepsClientFields(t *testing.T) {
	prev := `{"roadTypeSegments":[{"roadType":"GRAVEL"}],"startAddress":"A","endAddress":"B","waypoints":["x"],"tags":["scenic"],"averageSpeed":99}`

	raw, err := Assemble(prev, sampleDerived())
	require.NoError(t, err)

	m, state := Decode(raw)
	assert.Equal(t, StateOK, state)
	assert.Equal(t, "A", m.StartAddress)
	assert.Equal(t, "B", m.EndAddress)
	assert.Equal(t, []string{"x"}, m.Waypoints)
	assert.Equal(t, []string{"scenic"}, m.Tags)
	// derived fields are replaced
	assert.Equal(t, "BIKE_PATH", m.RoadTypeSegments[0].RoadType)
	assert.Equal(t, 15.0, *m.AverageSpeed)
}

func TestAssemble_CorruptPrevious(t *testing.T) {
	raw, err := Assemble("{{{", sampleDerived())
	require.NoError(t, err)
	_, state := Decode(raw)
	assert.Equal(t, StateOK, state)
}

func TestAssemble_Idempotent(t *testing.T) {
	a, err := Assemble("", sampleDerived())
	require.NoError(t, err)
	b, err := Assemble(a, sampleDerived())
	require.NoError(t, err)
	assert.JSONEq(t, a, b)
}

func TestAssemble_EmptyRoute(t *testing.T) {
	raw, err := Assemble("", Derived{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"roadTypeSegments":[],"roadTypeStats":{"breakdown":[],"totalDistance":0,"totalTypes":0}}`, raw)
}

func TestState(t *testing.T) {
	assert.Equal(t, "ok", StateOK.String())
	assert.Empty(t, StateOK.Message())
	assert.Equal(t, "No road type data available", StateAbsent.Message())
	b, err := json.Marshal(map[string]State{"state": StateCorrupt})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"corrupt"}`, string(b))
}
