package graph

import (
	"github.com/paulmach/orb"

	"github.com/chingiztob/cascade/internal/coreerr"
	"github.com/chingiztob/cascade/internal/models"
)

// Snap resolves an external geographic point to its nearest street node via
// the graph's spatial index, converting the haversine distance into
// pedestrian seconds at models.PedestrianSpeed — the same conversion the
// street-segment builder uses for WalkEdge weights, so a snap leg costs the
// same per meter as any other walk in the graph.
func Snap(g *Graph, p orb.Point) (models.SnappedPoint, error) {
	index := g.Index()
	if index == nil {
		return models.SnappedPoint{}, coreerr.New(coreerr.NodeNotFound, "spatial index is empty")
	}

	nodeID, distanceMeters, err := index.Nearest(p)
	if err != nil {
		return models.SnappedPoint{}, err
	}

	return models.SnappedPoint{
		Point:    p,
		NodeID:   nodeID,
		Distance: distanceMeters / models.PedestrianSpeed,
	}, nil
}
