package roadtype

import "strings"

var pavedSurfaces = map[string]bool{
	"paved": true, "asphalt": true, "concrete": true, "concrete:plates": true,
	"concrete:lanes": true, "paving_stones": true, "sett": true, "chipseal": true,
}

var unpavedSurfaces = map[string]bool{
	"unpaved": true, "gravel": true, "fine_gravel": true, "compacted": true,
	"dirt": true, "earth": true, "ground": true, "grass": true, "mud": true,
	"sand": true, "pebblestone": true, "woodchips": true, "rock": true,
}

// rough surfaces turn a track into a trail even for cyclists
var roughSurfaces = map[string]bool{
	"dirt": true, "earth": true, "ground": true, "grass": true, "mud": true,
	"sand": true, "woodchips": true, "rock": true,
}

func allowed(v string) bool {
	return v == "yes" || v == "designated" || v == "permissive"
}

func hasCycleway(tags map[string]string, kinds ...string) bool {
	for _, key := range []string{"cycleway", "cycleway:both", "cycleway:right", "cycleway:left"} {
		v := tags[key]
		for _, k := range kinds {
			if v == k {
				return true
			}
		}
	}
	return false
}

// FromTags maps OSM way tags onto a category for the given travel mode.
// Ways without a highway tag are Unknown.
func FromTags(tags map[string]string, mode TravelMode) Category {
	highway := strings.TrimSpace(tags["highway"])
	surface := tags["surface"]
	paved := pavedSurfaces[surface]
	unpaved := unpavedSurfaces[surface]

	switch highway {
	case "":
		return Unknown

	case "cycleway":
		if mode == ModePedestrian {
			return SharedUsePath
		}
		return BikePath

	case "path", "bridleway":
		switch mode {
		case ModeCycling:
			switch {
			case tags["bicycle"] == "no":
				return PedestrianOnly
			case tags["bicycle"] == "designated":
				return BikePath
			case unpaved:
				return Trail
			default:
				return SharedUsePath
			}
		case ModePedestrian:
			if paved && tags["bicycle"] == "designated" {
				return SharedUsePath
			}
			return Trail
		default:
			return Trail
		}

	case "track":
		switch mode {
		case ModeCycling:
			if roughSurfaces[surface] {
				return Trail
			}
			return Gravel
		case ModePedestrian:
			return Trail
		default:
			return Gravel
		}

	case "footway", "corridor":
		switch mode {
		case ModeCycling:
			if allowed(tags["bicycle"]) {
				return SharedUsePath
			}
			return PedestrianOnly
		case ModePedestrian:
			return Footway
		default:
			return PedestrianOnly
		}

	case "pedestrian":
		if mode == ModeCycling && allowed(tags["bicycle"]) {
			return SharedUsePath
		}
		return PedestrianOnly

	case "steps":
		return Steps

	case "residential", "living_street":
		if unpaved {
			return Gravel
		}
		return Residential

	case "service":
		if unpaved {
			return Gravel
		}
		return ServiceRoad

	case "unclassified", "tertiary", "tertiary_link", "road":
		if unpaved {
			return Gravel
		}
		if mode == ModeCycling && hasCycleway(tags, "lane", "track", "shared_lane") {
			return BikeLane
		}
		return PavedRoad

	case "primary", "primary_link", "secondary", "secondary_link", "trunk", "trunk_link":
		if mode == ModeCycling {
			if hasCycleway(tags, "track") {
				return BikePath
			}
			if hasCycleway(tags, "lane") {
				return BikeLane
			}
		}
		return MajorRoad

	case "motorway", "motorway_link":
		return Motorway
	}

	if unpaved {
		return Gravel
	}
	return PavedRoad
}
