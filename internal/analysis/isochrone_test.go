package analysis

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"

	"github.com/chingiztob/cascade/internal/graph"
	"github.com/chingiztob/cascade/internal/models"
)

func starGraph() *graph.Graph {
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

	return graph.New(nodes, edges, map[string]int{}, nil)
}

func reverse(l orb.LineString) orb.LineString {
	out := make(orb.LineString, len(l))
	for i, p := range l {
		out[len(l)-1-i] = p
	}
	return out
}

func TestIsochroneCoversOrigin(t *testing.T) {
	g := starGraph()
	poly := Isochrone(context.Background(), g, 0, 0, 600, 1e-3)

	assert.NotEmpty(t, poly)
	assert.True(t, planar.MultiPolygonContains(poly, orb.Point{0, 0}), "the origin's lon/lat must be covered")
}

func TestIsochroneZeroCutoffIsEmpty(t *testing.T) {
	g := starGraph()
	poly := Isochrone(context.Background(), g, 0, 0, 0, 1e-3)

	assert.Empty(t, poly)
}
