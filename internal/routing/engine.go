package routing

import (
	"container/heap"
	"context"

	"github.com/paulmach/orb"

	"github.com/chingiztob/cascade/internal/coreerr"
	"github.com/chingiztob/cascade/internal/graph"
	"github.com/chingiztob/cascade/internal/models"
)

// Engine runs time-dependent Dijkstra searches against a sealed Graph. It
// holds no state of its own beyond the graph reference: every query
// allocates its own queue, visited set, and score map, so concurrent
// queries never share mutable state (see §5's worker-pool model).
type Engine struct {
	graph *graph.Graph
}

// NewEngine binds an Engine to a sealed graph.
func NewEngine(g *graph.Graph) *Engine {
	return &Engine{graph: g}
}

// searchState is one entry in the priority queue: a candidate score for
// reaching node at the given arrival time. Entries are never mutated once
// pushed; a better score for the same node is pushed as a fresh entry and
// the stale one is discarded on pop (the standard lazy-deletion approach
// to a binary heap without a decrease-key operation).
type searchState struct {
	node  int
	time  uint32
	score float64
	index int
}

type searchQueue []*searchState

func (q searchQueue) Len() int            { return len(q) }
func (q searchQueue) Less(i, j int) bool  { return q[i].score < q[j].score }
func (q searchQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *searchQueue) Push(x interface{}) {
	s := x.(*searchState)
	s.index = len(*q)
	*q = append(*q, s)
}
func (q *searchQueue) Pop() interface{} {
	old := *q
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*q = old[:n-1]
	return s
}

// predecessor records the edge a node was finalized through, for itinerary
// reconstruction.
type predecessor struct {
	from    int
	segment models.Segment
}

// run is the shared core of every output mode: time-dependent Dijkstra
// from origin at t0, optionally stopping early at target, optionally
// recording predecessors. Nodes are finalized only after their outgoing
// edges have been relaxed, matching §4.4's algorithm precisely (not at pop
// time, which would be the ordinary, non-time-dependent variant).
func (e *Engine) run(ctx context.Context, origin int, t0 uint32, target int, wantTarget bool, wheelchairRequired bool, recordPredecessors bool) (score map[int]float64, pred map[int]predecessor, reachedTarget bool) {
	score = map[int]float64{origin: 0}
	finalized := make(map[int]bool)
	if recordPredecessors {
		pred = make(map[int]predecessor)
	}

	q := &searchQueue{}
	heap.Init(q)
	heap.Push(q, &searchState{node: origin, time: t0, score: 0})

	for q.Len() > 0 {
		select {
		case <-ctx.Done():
			return score, pred, reachedTarget
		default:
		}

		cur := heap.Pop(q).(*searchState)

		if finalized[cur.node] {
			continue
		}
		if best, ok := score[cur.node]; ok && cur.score > best {
			continue
		}

		if wantTarget && cur.node == target {
			reachedTarget = true
			return score, pred, reachedTarget
		}

		for _, edge := range e.graph.Edges(cur.node) {
			if finalized[edge.To] {
				continue
			}

			dt, segment, ok := Cost(edge, cur.time, wheelchairRequired)
			if !ok {
				continue
			}

			newScore := cur.score + dt
			if existing, seen := score[edge.To]; seen && newScore >= existing {
				continue
			}

			score[edge.To] = newScore
			if recordPredecessors {
				pred[edge.To] = predecessor{from: cur.node, segment: segment}
			}
			heap.Push(q, &searchState{node: edge.To, time: cur.time + uint32(dt), score: newScore})
		}

		finalized[cur.node] = true
	}

	return score, pred, reachedTarget
}

// OneToAll returns every node's earliest-arrival score from origin at t0.
// Unreachable nodes are simply absent from the map.
func (e *Engine) OneToAll(ctx context.Context, origin int, t0 uint32) map[int]float64 {
	score, _, _ := e.run(ctx, origin, t0, -1, false, false, false)
	return score
}

// OneToOneWeight returns the earliest-arrival travel time from origin to
// target at t0, or a MissingValue error if target is unreachable.
func (e *Engine) OneToOneWeight(ctx context.Context, origin, target int, t0 uint32) (float64, error) {
	score, _, reached := e.run(ctx, origin, t0, target, true, false, false)
	if !reached {
		if w, ok := score[target]; ok {
			return w, nil
		}
		return 0, coreerr.New(coreerr.MissingValue, "target node %d unreachable from origin %d at t0=%d", target, origin, t0)
	}
	return score[target], nil
}

// DetailedItinerary runs the search with predecessor tracking and
// reconstructs the ordered segment list from target back to origin. An
// unreachable target yields an empty segment list and zero weight, per
// §6's "itinerary (possibly empty)" contract — this operation does not
// fail.
func (e *Engine) DetailedItinerary(ctx context.Context, origin, target int, t0 uint32, wheelchairRequired bool) ([]models.Segment, float64) {
	if origin == target {
		return nil, 0
	}

	score, pred, reached := e.run(ctx, origin, t0, target, true, wheelchairRequired, true)
	if !reached {
		return nil, 0
	}

	var segments []models.Segment
	node := target
	for node != origin {
		p, ok := pred[node]
		if !ok {
			return nil, 0
		}
		segments = append(segments, p.segment)
		node = p.from
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	return segments, score[target]
}

// OneToAllFromPoint snaps origin to its nearest street node and runs
// OneToAll from it, adding the snap's own walk distance to every returned
// score as a post-step (§4.4) — so scores[snap.NodeID] is the walk distance
// itself, not zero, and every other entry is the true door-to-node cost.
func (e *Engine) OneToAllFromPoint(ctx context.Context, origin orb.Point, t0 uint32) (map[int]float64, models.SnappedPoint, error) {
	snap, err := graph.Snap(e.graph, origin)
	if err != nil {
		return nil, models.SnappedPoint{}, err
	}

	scores := e.OneToAll(ctx, snap.NodeID, t0)
	for node, score := range scores {
		scores[node] = score + snap.Distance
	}

	return scores, snap, nil
}

// OneToOneWeightFromPoints snaps both endpoints and returns the door-to-door
// travel time: the node-to-node search weight plus both snap legs.
func (e *Engine) OneToOneWeightFromPoints(ctx context.Context, origin, target orb.Point, t0 uint32) (float64, models.SnappedPoint, models.SnappedPoint, error) {
	originSnap, err := graph.Snap(e.graph, origin)
	if err != nil {
		return 0, models.SnappedPoint{}, models.SnappedPoint{}, err
	}
	targetSnap, err := graph.Snap(e.graph, target)
	if err != nil {
		return 0, models.SnappedPoint{}, models.SnappedPoint{}, err
	}

	weight, err := e.OneToOneWeight(ctx, originSnap.NodeID, targetSnap.NodeID, t0)
	if err != nil {
		return 0, originSnap, targetSnap, err
	}

	return weight + originSnap.Distance + targetSnap.Distance, originSnap, targetSnap, nil
}

// DetailedItineraryFromPoints snaps both endpoints and runs the detailed
// search between their nodes. The returned segments and weight cover only
// the node-to-node path, not the snap legs themselves — so
// one_to_one_weight's door-to-door total always equals this weight plus
// both endpoints' snap distances (§8's round-trip identity).
func (e *Engine) DetailedItineraryFromPoints(ctx context.Context, origin, target orb.Point, t0 uint32, wheelchairRequired bool) ([]models.Segment, float64, models.SnappedPoint, models.SnappedPoint, error) {
	originSnap, err := graph.Snap(e.graph, origin)
	if err != nil {
		return nil, 0, models.SnappedPoint{}, models.SnappedPoint{}, err
	}
	targetSnap, err := graph.Snap(e.graph, target)
	if err != nil {
		return nil, 0, originSnap, models.SnappedPoint{}, err
	}

	segments, weight := e.DetailedItinerary(ctx, originSnap.NodeID, targetSnap.NodeID, t0, wheelchairRequired)

	return segments, weight, originSnap, targetSnap, nil
}
