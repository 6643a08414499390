package itinerary

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/chingiztob/cascade/internal/models"
)

func sampleItinerary() Itinerary {
	return Itinerary{Segments: []models.Segment{
		{
			Kind:     models.SegmentPedestrian,
			Weight:   60,
			Geometry: orb.LineString{{0, 0}, {1, 1}},
		},
		{
			Kind:     models.SegmentTransit,
			Weight:   120,
			Geometry: orb.LineString{{1, 1}, {2, 2}},
			Trip:     models.Trip{Departure: 100, Arrival: 220, RouteID: "R1", WheelchairAccessible: true},
		},
	}}
}

func TestItineraryDuration(t *testing.T) {
	it := sampleItinerary()
	assert.Equal(t, 180.0, it.Duration())
}

func TestItineraryCombinedGeometry(t *testing.T) {
	it := sampleItinerary()
	geom := it.CombinedGeometry()

	assert.Equal(t, orb.Point{0, 0}, geom[0])
	assert.Equal(t, orb.Point{2, 2}, geom[len(geom)-1])
	assert.Len(t, geom, 3, "the shared vertex (1,1) must not be duplicated")
}

func TestItineraryAsFeatureCollection(t *testing.T) {
	it := sampleItinerary()
	fc := it.AsFeatureCollection()

	assert.Len(t, fc.Features, 2)

	transitFeature := fc.Features[1]
	assert.Equal(t, "transit", transitFeature.Properties["type"])
	assert.Equal(t, "R1", transitFeature.Properties["route_id"])

	walkFeature := fc.Features[0]
	assert.Equal(t, "pedestrian", walkFeature.Properties["type"])
	_, hasRoute := walkFeature.Properties["route_id"]
	assert.False(t, hasRoute)
}

func TestItineraryEmpty(t *testing.T) {
	it := Itinerary{}
	assert.Equal(t, 0.0, it.Duration())
	assert.Empty(t, it.CombinedGeometry())
}
