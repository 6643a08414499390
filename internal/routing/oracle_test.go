package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chingiztob/cascade/internal/models"
)

func tripSeq() []models.Trip {
	return []models.Trip{
		{Departure: 100, Arrival: 200, RouteID: "A", WheelchairAccessible: false},
		{Departure: 150, Arrival: 260, RouteID: "A", WheelchairAccessible: true},
		{Departure: 300, Arrival: 400, RouteID: "A", WheelchairAccessible: true},
	}
}

func TestCostWalkEdge(t *testing.T) {
	e := models.Edge{Kind: models.EdgeWalk, Weight: 42}
	dt, seg, ok := Cost(e, 0, false)
	assert.True(t, ok)
	assert.Equal(t, 42.0, dt)
	assert.Equal(t, models.SegmentPedestrian, seg.Kind)
}

func TestCostTransferEdge(t *testing.T) {
	e := models.Edge{Kind: models.EdgeTransfer, Weight: 7}
	dt, seg, ok := Cost(e, 999, false)
	assert.True(t, ok)
	assert.Equal(t, 7.0, dt)
	assert.Equal(t, models.SegmentPedestrian, seg.Kind)
}

func TestCostTransitEdge(t *testing.T) {
	t.Run("earliest departing trip at or after t_now", func(t *testing.T) {
		e := models.Edge{Kind: models.EdgeTransit, Trips: tripSeq()}
		dt, seg, ok := Cost(e, 120, false)
		assert.True(t, ok)
		assert.Equal(t, 260.0-120.0, dt)
		assert.Equal(t, models.SegmentTransit, seg.Kind)
		assert.Equal(t, uint32(150), seg.Trip.Departure)
	})

	t.Run("exact match at departure is reachable with zero wait", func(t *testing.T) {
		e := models.Edge{Kind: models.EdgeTransit, Trips: tripSeq()}
		dt, _, ok := Cost(e, 150, false)
		assert.True(t, ok)
		assert.Equal(t, 110.0, dt)
	})

	t.Run("no future trip yields NoService", func(t *testing.T) {
		e := models.Edge{Kind: models.EdgeTransit, Trips: tripSeq()}
		_, seg, ok := Cost(e, 500, false)
		assert.False(t, ok)
		assert.Equal(t, models.SegmentNoService, seg.Kind)
	})

	t.Run("wheelchair filter skips inaccessible trips", func(t *testing.T) {
		e := models.Edge{Kind: models.EdgeTransit, Trips: tripSeq()}
		dt, seg, ok := Cost(e, 100, true)
		assert.True(t, ok)
		assert.Equal(t, uint32(150), seg.Trip.Departure)
		assert.Equal(t, 260.0-100.0, dt)
	})

	t.Run("wheelchair filter with no accessible trip left yields NoService", func(t *testing.T) {
		e := models.Edge{Kind: models.EdgeTransit, Trips: []models.Trip{
			{Departure: 100, Arrival: 200, WheelchairAccessible: false},
		}}
		_, _, ok := Cost(e, 50, true)
		assert.False(t, ok)
	})
}
