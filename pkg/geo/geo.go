// Package geo provides the planar and spherical geometry primitives used by
// pricing and zone evaluation.
package geo

import "math"

const earthRadiusKm = 6371

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lng1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lng2 := b.Lng * math.Pi / 180

	dLat := lat2 - lat1
	dLng := lng2 - lng1

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PointInPolygon reports whether p lies inside the polygon given as a ring of
// [lng, lat] vertex pairs. Ray casting with an upper-vertex-inclusive crossing
// rule: edges count when min(lat) < p.Lat <= max(lat), so a point exactly at
// an edge's top latitude toggles while one at the bottom does not. Rings with
// fewer than three vertices never contain anything.
func PointInPolygon(p Point, ring [][]float64) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	inside := false
	p1Lng, p1Lat := ring[0][0], ring[0][1]

	for i := 1; i <= n; i++ {
		p2Lng, p2Lat := ring[i%n][0], ring[i%n][1]

		if math.Min(p1Lat, p2Lat) < p.Lat && p.Lat <= math.Max(p1Lat, p2Lat) {
			if p.Lng <= math.Max(p1Lng, p2Lng) {
				xIntersection := p1Lng
				if p1Lat != p2Lat {
					xIntersection = (p.Lat-p1Lat)*(p2Lng-p1Lng)/(p2Lat-p1Lat) + p1Lng
				}
				if p1Lng == p2Lng || p.Lng <= xIntersection {
					inside = !inside
				}
			}
		}

		p1Lng, p1Lat = p2Lng, p2Lat
	}

	return inside
}
