package spatial

import (
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// ComputeExtent returns the bounding box and weighted centroid of the points.
// Points that are not valid lat/lng degrees are ignored; nil is returned when
// no valid point remains. Coordinates are used as given, no projection.
//
// The longitude interval is the smallest one covering all points, so for data
// that straddles the antimeridian MinLon is greater than MaxLon.
func ComputeExtent(points []models.SpatialPoint) *models.Extent {
	rect := s2.EmptyRect()
	var sum r3.Vector
	totalWeight := 0.0

	for _, p := range points {
		ll := s2.LatLngFromDegrees(p.Latitude, p.Longitude)
		if !ll.IsValid() {
			continue
		}
		rect = rect.AddPoint(ll)
		if p.Weight > 0 {
			sum = sum.Add(s2.PointFromLatLng(ll).Vector.Mul(float64(p.Weight)))
			totalWeight += float64(p.Weight)
		}
	}
	if rect.IsEmpty() {
		return nil
	}

	center := rect.Center()
	if totalWeight > 0 && sum.Norm() > 0 {
		center = s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	}

	lo, hi := rect.Lo(), rect.Hi()
	return &models.Extent{
		MinLat:         lo.Lat.Degrees(),
		MaxLat:         hi.Lat.Degrees(),
		MinLon:         lo.Lng.Degrees(),
		MaxLon:         hi.Lng.Degrees(),
		CenterLat:      center.Lat.Degrees(),
		CenterLon:      center.Lng.Degrees(),
		DiagonalMeters: HaversineDistance(lo.Lat.Degrees(), lo.Lng.Degrees(), hi.Lat.Degrees(), hi.Lng.Degrees()),
	}
}
