// Package routing implements the time-dependent cost oracle and the
// shortest-path engine built on top of it: one-to-all weights, one-to-one
// weight, and detailed itinerary reconstruction.
package routing

import (
	"math"
	"sort"

	"github.com/chingiztob/cascade/internal/models"
)

// NoService is the infinity-valued sentinel returned by the cost oracle
// when an edge cannot be traversed at the given time: no future trip exists
// on a TransitEdge, or, under a wheelchair requirement, no remaining trip is
// wheelchair accessible.
const NoService = math.MaxFloat64

// Cost evaluates an edge's traversal time starting at tNow (seconds since
// day origin). WalkEdge and TransferEdge cost is the edge's fixed weight.
// TransitEdge cost is found by binary-searching the sorted trip list for
// the earliest trip departing at or after tNow; if wheelchairRequired is
// set, trips whose WheelchairAccessible flag is false are skipped entirely
// regardless of schedule.
//
// Returns (dt, segment, ok); ok is false when dt is NoService.
func Cost(e models.Edge, tNow uint32, wheelchairRequired bool) (float64, models.Segment, bool) {
	switch e.Kind {
	case models.EdgeWalk:
		return e.Weight, models.Segment{Kind: models.SegmentPedestrian, Weight: e.Weight, Geometry: e.Geometry}, true

	case models.EdgeTransfer:
		return e.Weight, models.Segment{Kind: models.SegmentPedestrian, Weight: e.Weight}, true

	case models.EdgeTransit:
		trip, ok := earliestTrip(e.Trips, tNow, wheelchairRequired)
		if !ok {
			return NoService, models.Segment{Kind: models.SegmentNoService}, false
		}
		dt := float64(trip.Arrival) - float64(tNow)
		return dt, models.Segment{Kind: models.SegmentTransit, Weight: dt, Geometry: e.Geometry, Trip: trip}, true
	}

	return NoService, models.Segment{Kind: models.SegmentNoService}, false
}

// earliestTrip binary-searches trips (sorted by Departure, per the graph's
// invariant) for the first one departing at or after tNow, then scans
// forward past any wheelchair-inaccessible trips when required. The scan
// does not re-sort: ties in departure time are resolved by the order
// trips were inserted, matching the oracle's stable-tie-break contract.
func earliestTrip(trips []models.Trip, tNow uint32, wheelchairRequired bool) (models.Trip, bool) {
	start := sort.Search(len(trips), func(i int) bool {
		return trips[i].Departure >= tNow
	})

	for i := start; i < len(trips); i++ {
		if wheelchairRequired && !trips[i].WheelchairAccessible {
			continue
		}
		return trips[i], true
	}

	return models.Trip{}, false
}
