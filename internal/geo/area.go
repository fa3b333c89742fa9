package geo

import "math"

// PolygonAreaHectares computes the area of a parcel boundary in hectares
// using the shoelace formula over a local equirectangular projection centered
// on the ring's centroid. Accurate for parcel-sized polygons; returns 0 for
// degenerate rings (< 3 distinct vertices).
func PolygonAreaHectares(ring []Point) float64 {
	if len(ring) < 3 {
		return 0
	}
	// Drop a closing vertex equal to the first.
	if ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
		if len(ring) < 3 {
			return 0
		}
	}

	var avgLat, avgLon float64
	for _, p := range ring {
		avgLat += p.Lat
		avgLon += p.Lon
	}
	avgLat /= float64(len(ring))
	avgLon /= float64(len(ring))

	// Project each vertex to meters relative to the centroid.
	const metersPerKm = 1000.0
	cosLat := math.Cos(radians(avgLat))
	xy := make([][2]float64, len(ring))
	for i, p := range ring {
		x := radians(p.Lon-avgLon) * earthRadiusKm * metersPerKm * cosLat
		y := radians(p.Lat-avgLat) * earthRadiusKm * metersPerKm
		xy[i] = [2]float64{x, y}
	}

	var area float64
	n := len(xy)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += xy[i][0] * xy[j][1]
		area -= xy[j][0] * xy[i][1]
	}
	area = math.Abs(area) / 2

	const sqMetersPerHectare = 10000.0
	return round2(area / sqMetersPerHectare)
}
