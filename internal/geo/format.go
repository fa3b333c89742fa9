package geo

import "fmt"

var cardinalNames = map[string]string{
	"N": "north", "NE": "northeast", "E": "east", "SE": "southeast",
	"S": "south", "SW": "southwest", "W": "west", "NW": "northwest",
}

// FormatDistance renders a distance for display: "250 m" under a kilometer,
// "1.2 km" above.
func FormatDistance(distanceKm float64) string {
	if distanceKm < 1 {
		return fmt.Sprintf("%d m", int(distanceKm*1000))
	}
	return fmt.Sprintf("%.1f km", distanceKm)
}

// LocationContext renders a human-readable position relative to the caller,
// e.g. "1.2 km to the north".
func LocationContext(distanceKm float64, direction string) string {
	name, ok := cardinalNames[direction]
	if !ok {
		name = direction
	}
	return fmt.Sprintf("%s to the %s", FormatDistance(distanceKm), name)
}
