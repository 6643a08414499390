// Package itinerary reconstructs a travel plan from the engine's ordered
// segment list into the shapes a caller actually wants: total duration, one
// combined polyline, and a structured geographic feature collection.
package itinerary

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/chingiztob/cascade/internal/models"
)

// Itinerary is the client-visible result of a detailed_itinerary query: an
// ordered sequence of typed segments, each already carrying its own weight
// and geometry.
type Itinerary struct {
	Segments []models.Segment
}

// Duration returns the sum of every segment's weight, in seconds.
func (it Itinerary) Duration() float64 {
	var total float64
	for _, s := range it.Segments {
		total += s.Weight
	}
	return total
}

// CombinedGeometry concatenates every segment's polyline into one, skipping
// a segment's leading point when it coincides with the previous segment's
// trailing point so the shared boundary vertex is not duplicated.
func (it Itinerary) CombinedGeometry() orb.LineString {
	var combined orb.LineString
	for _, s := range it.Segments {
		if len(s.Geometry) == 0 {
			continue
		}
		points := s.Geometry
		if len(combined) > 0 && combined[len(combined)-1] == points[0] {
			points = points[1:]
		}
		combined = append(combined, points...)
	}
	return combined
}

// AsFeatureCollection emits one GeoJSON feature per segment. Every feature
// carries `sequence`, `type`, and `weight` properties; transit segments
// additionally carry `route_id`, `departure_time`, `arrival_time`, and
// `wheelchair_accessible`.
func (it Itinerary) AsFeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i, s := range it.Segments {
		geom := orb.Geometry(s.Geometry)
		if len(s.Geometry) == 0 {
			geom = orb.LineString{}
		}

		feature := geojson.NewFeature(geom)
		feature.Properties["sequence"] = i
		feature.Properties["type"] = segmentKindName(s.Kind)
		feature.Properties["weight"] = s.Weight

		if s.Kind == models.SegmentTransit {
			feature.Properties["route_id"] = s.Trip.RouteID
			feature.Properties["departure_time"] = s.Trip.Departure
			feature.Properties["arrival_time"] = s.Trip.Arrival
			feature.Properties["wheelchair_accessible"] = s.Trip.WheelchairAccessible
		}

		fc.Append(feature)
	}

	return fc
}

func segmentKindName(k models.SegmentKind) string {
	switch k {
	case models.SegmentTransit:
		return "transit"
	case models.SegmentPedestrian:
		return "pedestrian"
	default:
		return "no_service"
	}
}
