// Package geo provides the spherical geometry primitives used by the
// network topology layer: great-circle distance between coordinates and
// the distance from a point to a pipeline segment.
//
// Segment projection treats latitude/longitude as a flat 2D system, which
// is acceptable at the sub-100m scales where these checks matter; the
// final distance is always computed on the sphere.
package geo

import (
	"math"

	"watergrid/pkg/domain"
)

// EarthRadiusMeters is the mean Earth radius used for all great-circle
// calculations.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between two positions in
// meters, using the haversine formula.
func Distance(a, b domain.Position) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// PointToSegmentDistance returns the distance in meters from p to the
// closest point of the segment start-end. The projection parameter is
// clamped to [0, 1], so the closest point never falls outside the segment.
//
// A zero-length segment has no valid projection; callers must skip such
// segments before calling.
func PointToSegmentDistance(p, start, end domain.Position) float64 {
	dx := end.Latitude - start.Latitude
	dy := end.Longitude - start.Longitude

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		// Degenerate segment: distance to its single point.
		return Distance(p, start)
	}

	// t* minimises |start + t*(end-start) - p|^2 over t.
	t := ((p.Latitude-start.Latitude)*dx + (p.Longitude-start.Longitude)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := domain.Position{
		Latitude:  start.Latitude + t*dx,
		Longitude: start.Longitude + t*dy,
	}

	return Distance(p, closest)
}

// IsZeroLength reports whether the two segment endpoints coincide in
// planar coordinates.
func IsZeroLength(start, end domain.Position) bool {
	return start.Latitude == end.Latitude && start.Longitude == end.Longitude
}
