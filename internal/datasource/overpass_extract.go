package datasource

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/paulmach/orb"
)

// UnmarshalOverpassJSON decodes an Overpass API JSON response into an overpass.Result.
func UnmarshalOverpassJSON(data []byte) (*overpass.Result, error) {
	var result overpass.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overpass json: %w", err)
	}
	return &result, nil
}

// ExtractWays converts the highway ways of an Overpass result, sorted by ID.
// Ways without geometry or without a highway tag are skipped.
func ExtractWays(result *overpass.Result) []Way {
	if result == nil {
		return nil
	}

	ways := make([]Way, 0, len(result.Ways))
	for _, way := range result.Ways {
		w := convertWay(way)
		if w == nil {
			continue
		}
		ways = append(ways, *w)
	}

	sort.Slice(ways, func(i, j int) bool { return ways[i].ID < ways[j].ID })
	return ways
}

func convertWay(way *overpass.Way) *Way {
	if way == nil || len(way.Geometry) == 0 || way.Tags["highway"] == "" {
		return nil
	}

	points := make(orb.LineString, len(way.Geometry))
	for i, point := range way.Geometry {
		points[i] = orb.Point{point.Lon, point.Lat}
	}

	return &Way{
		ID:       way.ID,
		Tags:     copyTags(way.Tags),
		Geometry: points,
	}
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
