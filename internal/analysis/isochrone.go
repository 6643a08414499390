// Package analysis implements the two derived products built on top of the
// routing engine: isochrone polygon generation and the parallel
// origin-destination matrix.
package analysis

import (
	"context"
	"math"

	"github.com/paulmach/orb"

	"github.com/chingiztob/cascade/internal/graph"
	"github.com/chingiztob/cascade/internal/routing"
)

// Isochrone runs §4.6's procedure: an all-weights search from origin,
// filtered to the cutoff, buffered per incident edge, and collected into a
// multipolygon. The "unary union" normalization step a GEOS-backed
// implementation would perform is, here, the simpler act of collecting
// every buffered polygon into one orb.MultiPolygon: no polygon-boolean
// library appears anywhere in the example pack (see DESIGN.md), and a
// MultiPolygon's rings are permitted to overlap without changing the
// covered area from a caller's point of view.
func Isochrone(ctx context.Context, g *graph.Graph, origin int, t0 uint32, cutoff, buffer float64) orb.MultiPolygon {
	engine := routing.NewEngine(g)
	scores := engine.OneToAll(ctx, origin, t0)

	reachable := make(map[int]bool, len(scores))
	for node, score := range scores {
		if score <= cutoff {
			reachable[node] = true
		}
	}

	var polygons orb.MultiPolygon
	seen := make(map[[2]int]bool)

	for node := range reachable {
		for _, edge := range g.Edges(node) {
			if !reachable[edge.To] {
				continue
			}
			key := edgeKey(node, edge.To)
			if seen[key] {
				continue
			}
			seen[key] = true

			if len(edge.Geometry) < 2 {
				continue
			}
			polygons = append(polygons, bufferLine(edge.Geometry, buffer)...)
		}
	}

	return polygons
}

func edgeKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

// bufferLine approximates a buffered polyline as the union of one
// rectangular quadrilateral per segment, offset perpendicular to the
// segment direction by radius on each side. Each quadrilateral is its own
// polygon, so no ring is read as a hole of another.
func bufferLine(line orb.LineString, radius float64) orb.MultiPolygon {
	var poly orb.MultiPolygon
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		dx, dy := b[0]-a[0], b[1]-a[1]
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*radius, dx/length*radius

		ring := orb.Ring{
			{a[0] + nx, a[1] + ny},
			{b[0] + nx, b[1] + ny},
			{b[0] - nx, b[1] - ny},
			{a[0] - nx, a[1] - ny},
			{a[0] + nx, a[1] + ny},
		}
		poly = append(poly, orb.Polygon{ring})
	}
	return poly
}
