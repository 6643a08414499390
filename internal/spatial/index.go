// Package spatial provides the bulk-loaded 2-D nearest-neighbor index used
// to snap external geographic points onto the street network.
package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"github.com/chingiztob/cascade/internal/coreerr"
)

// Index is an immutable, bulk-loaded spatial index over street-node points.
// Once built it answers Nearest in expected-logarithmic time and is safe
// for concurrent read-only use from multiple goroutines.
type Index struct {
	tree  rtree.RTreeG[int]
	empty bool
}

// Point is one entry to bulk-load: a street node's location and its dense
// graph node ID.
type Point struct {
	Coord  orb.Point
	NodeID int
}

// Build bulk-loads a new index over the given points. It is the only
// mutator; the returned Index is immutable thereafter.
func Build(points []Point) *Index {
	idx := &Index{empty: len(points) == 0}
	for _, p := range points {
		loc := [2]float64{p.Coord.Lon(), p.Coord.Lat()}
		idx.tree.Insert(loc, loc, p.NodeID)
	}
	return idx
}

// metersPerDegreeLat approximates the meter length of one degree of
// latitude; used only to size the search box, not to compute distances.
const metersPerDegreeLat = 111320.0

// Nearest returns the node ID closest to the given point by an expanding
// bounding-box search, and the haversine distance to it in meters. Returns
// NodeNotFound if the index is empty.
//
// A box scan alone is not a correct nearest-neighbor answer: a point near a
// box corner can be farther away than a point just outside the box along an
// uncovered axis. So a candidate found inside the current box is only
// accepted once the box's own half-width, converted to meters, reaches at
// least as far as the candidate — otherwise the box is grown and the scan
// redone from scratch.
func (idx *Index) Nearest(p orb.Point) (nodeID int, distanceMeters float64, err error) {
	if idx.empty {
		return 0, 0, coreerr.New(coreerr.NodeNotFound, "spatial index is empty")
	}

	const initialRadiusMeters = 1000.0
	radiusMeters := initialRadiusMeters
	best := -1
	bestDist := math.Inf(1)

	for attempt := 0; attempt < 20; attempt++ {
		latDelta := radiusMeters / metersPerDegreeLat
		lonDelta := radiusMeters / (metersPerDegreeLat * math.Cos(p.Lat()*math.Pi/180))

		min := [2]float64{p.Lon() - lonDelta, p.Lat() - latDelta}
		max := [2]float64{p.Lon() + lonDelta, p.Lat() + latDelta}

		best = -1
		bestDist = math.Inf(1)
		idx.tree.Search(min, max, func(bmin, bmax [2]float64, data int) bool {
			d := haversine(p.Lat(), p.Lon(), bmax[1], bmax[0])
			if d < bestDist {
				bestDist = d
				best = data
			}
			return true
		})

		if best != -1 && bestDist <= radiusMeters {
			return best, bestDist, nil
		}
		radiusMeters *= 4
	}

	if best != -1 {
		return best, bestDist, nil
	}

	return 0, 0, coreerr.New(coreerr.NodeNotFound, "no street node found near (%f, %f)", p.Lon(), p.Lat())
}

// haversine returns the great-circle distance between two lon/lat points in
// meters.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
