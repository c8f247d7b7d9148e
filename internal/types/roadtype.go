package types

// OSMData carries the raw source tags a segment was classified from.
type OSMData struct {
	Highway string `json:"highway,omitempty"`
	Surface string `json:"surface,omitempty"`
	Bicycle string `json:"bicycle,omitempty"`
	Foot    string `json:"foot,omitempty"`
	Name    string `json:"name,omitempty"`
}

// OSMDataFromTags picks the tags relevant for display from a raw OSM tag map.
func OSMDataFromTags(tags map[string]string) *OSMData {
	if len(tags) == 0 {
		return nil
	}
	d := &OSMData{
		Highway: tags["highway"],
		Surface: tags["surface"],
		Bicycle: tags["bicycle"],
		Foot:    tags["foot"],
		Name:    tags["name"],
	}
	if *d == (OSMData{}) {
		return nil
	}
	return d
}

// RoadTypeSegment is a maximal run of consecutive points sharing one road type.
// StartIndex and EndIndex are inclusive indices into the route points.
// Coordinates are (lon, lat) pairs.
type RoadTypeSegment struct {
	RoadType    string       `json:"roadType"`
	StartIndex  int          `json:"startIndex"`
	EndIndex    int          `json:"endIndex"`
	Distance    float64      `json:"distance"`
	Color       string       `json:"color"`
	Coordinates [][2]float64 `json:"coordinates"`
	Surface     string       `json:"surface,omitempty"`
	OSMData     *OSMData     `json:"osmData,omitempty"`
}

// PointCount returns the number of route points the segment covers.
func (s RoadTypeSegment) PointCount() int {
	return s.EndIndex - s.StartIndex + 1
}

// RoadTypeStat summarises all segments of one road type.
type RoadTypeStat struct {
	RoadType     string  `json:"roadType"`
	Distance     float64 `json:"distance"`
	Percentage   string  `json:"percentage"`
	SegmentCount int     `json:"segmentCount"`
	Color        string  `json:"color"`
}

// RoadTypeStats is the per-route breakdown of road types.
type RoadTypeStats struct {
	Breakdown     []RoadTypeStat `json:"breakdown"`
	TotalDistance float64        `json:"totalDistance"`
	TotalTypes    int            `json:"totalTypes"`
}
