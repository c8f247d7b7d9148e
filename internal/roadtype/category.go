// Package roadtype defines road-type categories, their display colors and the
// travel-mode dependent mapping from OSM tags to categories.
package roadtype

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Category is an open, string-tagged road classification.
// Unregistered categories are valid and render with the default color.
type Category string

const (
	BikePath       Category = "BIKE_PATH"
	SharedUsePath  Category = "SHARED_USE_PATH"
	BikeLane       Category = "BIKE_LANE"
	PavedRoad      Category = "PAVED_ROAD"
	MajorRoad      Category = "MAJOR_ROAD"
	Residential    Category = "RESIDENTIAL"
	ServiceRoad    Category = "SERVICE_ROAD"
	Trail          Category = "TRAIL"
	Gravel         Category = "GRAVEL"
	Footway        Category = "FOOTWAY"
	PedestrianOnly Category = "PEDESTRIAN_ONLY"
	Steps          Category = "STEPS"
	Motorway       Category = "MOTORWAY"
	Unknown        Category = "UNKNOWN"
)

// DefaultColor is used for categories without a registered color.
const DefaultColor = "#9E9E9E"

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidColor reports whether c is a #RRGGBB color.
func ValidColor(c string) bool {
	return hexColor.MatchString(c)
}

// Registry maps categories to display colors. It is safe for concurrent use.
type Registry struct {
	colors map[Category]string
	mu     sync.RWMutex
}

// NewRegistry returns a registry pre-populated with the built-in categories.
func NewRegistry() *Registry {
	r := &Registry{colors: make(map[Category]string, len(builtinColors))}
	for c, col := range builtinColors {
		r.colors[c] = col
	}
	return r
}

var builtinColors = map[Category]string{
	BikePath:       "#2E7D32",
	SharedUsePath:  "#66BB6A",
	BikeLane:       "#00ACC1",
	PavedRoad:      "#546E7A",
	MajorRoad:      "#E53935",
	Residential:    "#FFB300",
	ServiceRoad:    "#BCAAA4",
	Trail:          "#795548",
	Gravel:         "#A1887F",
	Footway:        "#AB47BC",
	PedestrianOnly: "#D81B60",
	Steps:          "#5E35B1",
	Motorway:       "#B71C1C",
	Unknown:        DefaultColor,
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds or replaces the color of a category. Colors are stored upper-case.
func (r *Registry) Register(c Category, color string) bool {
	if c == "" || !ValidColor(color) {
		return false
	}
	r.mu.Lock()
	r.colors[c] = strings.ToUpper(color)
	r.mu.Unlock()
	return true
}

// Color returns the display color of c, falling back to DefaultColor.
func (r *Registry) Color(c Category) string {
	r.mu.RLock()
	col, ok := r.colors[c]
	r.mu.RUnlock()
	if !ok {
		return DefaultColor
	}
	return col
}

// Known reports whether c has a registered color.
func (r *Registry) Known(c Category) bool {
	r.mu.RLock()
	_, ok := r.colors[c]
	r.mu.RUnlock()
	return ok
}

// Entry is a category with its display color.
type Entry struct {
	Category Category `json:"roadType"`
	Color    string   `json:"color"`
}

// Entries lists all registered categories sorted by name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.colors))
	for c, col := range r.colors {
		out = append(out, Entry{Category: c, Color: col})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Normalize upper-cases a category label and maps the empty label to Unknown.
func Normalize(s string) Category {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Unknown
	}
	return Category(strings.ReplaceAll(s, " ", "_"))
}
