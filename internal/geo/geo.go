// Package geo is the pure distance/weighting library the engine builds on.
// No state, no I/O; every function is deterministic in its inputs.
package geo

import (
	"math"

	dErrors "shamba/pkg/domain-errors"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects NaN and out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return dErrors.New(dErrors.CodeInvalidCoordinate, "coordinate is not a finite number")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return dErrors.Newf(dErrors.CodeInvalidCoordinate, "latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return dErrors.Newf(dErrors.CodeInvalidCoordinate, "longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

// Distance returns the great-circle distance between two points in kilometers,
// rounded to 2 decimal places.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return round2(earthRadiusKm * c), nil
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
// Presentation only; never feeds weighting.
func Bearing(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	x := math.Sin(dLon) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Mod(degrees(math.Atan2(x, y))+360, 360)
	return round2(deg), nil
}

var cardinals = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CardinalDirection converts a bearing to its 8-point compass label.
func CardinalDirection(bearing float64) string {
	idx := int(math.Mod(bearing+22.5, 360)/45) % 8
	if idx < 0 {
		idx += 8
	}
	return cardinals[idx]
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
