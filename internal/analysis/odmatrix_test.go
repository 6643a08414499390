package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/chingiztob/cascade/internal/graph"
	"github.com/chingiztob/cascade/internal/models"
	"github.com/chingiztob/cascade/internal/spatial"
)

// starGraphWithIndex mirrors starGraph but also carries a spatial index, for
// tests that need point-snapping (ODMatrix, unlike Isochrone, snaps its
// inputs via the graph's index rather than taking node IDs directly).
func starGraphWithIndex() *graph.Graph {
	nodes := []models.Node{
		{ID: 0, Kind: models.NodeStreet, Point: orb.Point{0, 0}, StreetID: 1},
		{ID: 1, Kind: models.NodeStreet, Point: orb.Point{0.01, 0}, StreetID: 2},
		{ID: 2, Kind: models.NodeStreet, Point: orb.Point{0, 0.01}, StreetID: 3},
	}
	edges := make([][]models.Edge, len(nodes))
	geom01 := orb.LineString{{0, 0}, {0.01, 0}}
	geom02 := orb.LineString{{0, 0}, {0, 0.01}}
	edges[0] = []models.Edge{
		{From: 0, To: 1, Kind: models.EdgeWalk, Weight: 100, Geometry: geom01},
		{From: 0, To: 2, Kind: models.EdgeWalk, Weight: 900, Geometry: geom02},
	}
	edges[1] = []models.Edge{{From: 1, To: 0, Kind: models.EdgeWalk, Weight: 100, Geometry: reverse(geom01)}}
	edges[2] = []models.Edge{{From: 2, To: 0, Kind: models.EdgeWalk, Weight: 900, Geometry: reverse(geom02)}}

	idx := spatial.Build([]spatial.Point{
		{Coord: nodes[0].Point, NodeID: 0},
		{Coord: nodes[1].Point, NodeID: 1},
		{Coord: nodes[2].Point, NodeID: 2},
	})

	return graph.New(nodes, edges, map[string]int{}, idx)
}

// haversineMeters duplicates the formula spatial.Index uses internally, so
// this test can compute the expected snap distance for a query point that
// does not sit exactly on a node's coordinates.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
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

func TestODMatrixShape(t *testing.T) {
	g := starGraphWithIndex()

	// Points sit near, but not exactly on, their intended node's
	// coordinates: §4.4's snap-walk addition must be visible, which it
	// would not be for points placed exactly on a node (snap distance 0).
	points := []ODPoint{
		{ID: "a", Lon: 0.00002, Lat: 0.00001},
		{ID: "b", Lon: 0.01001, Lat: 0.00001},
		{ID: "c", Lon: 0.00001, Lat: 0.01002},
	}
	nodePoint := map[string]orb.Point{
		"a": {0, 0},
		"b": {0.01, 0},
		"c": {0, 0.01},
	}
	snapSeconds := make(map[string]float64, len(points))
	for _, p := range points {
		node := nodePoint[p.ID]
		snapSeconds[p.ID] = haversineMeters(p.Lat, p.Lon, node.Lat(), node.Lon()) / models.PedestrianSpeed
	}

	matrix, err := ODMatrix(context.Background(), g, points, 0)
	assert.NoError(t, err)
	assert.Len(t, matrix, 3)

	for _, p := range points {
		assert.Len(t, matrix[p.ID], 3, "row %s must cover the full origin set", p.ID)
	}

	// The diagonal is each origin's own snap-walk distance, not zero.
	assert.Greater(t, matrix["a"]["a"], 0.0)
	assert.InDelta(t, snapSeconds["a"], matrix["a"]["a"], 1e-9)
	assert.InDelta(t, 100.0+snapSeconds["a"], matrix["a"]["b"], 1e-9)

	// triangle inequality across all triples
	for _, o := range points {
		for _, k := range points {
			for _, d := range points {
				assert.LessOrEqual(t, matrix[o.ID][d.ID], matrix[o.ID][k.ID]+matrix[k.ID][d.ID]+1e-9)
			}
		}
	}
}
