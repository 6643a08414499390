// Package graph assembles the time-dependent routing graph from ingested
// schedule and street data, enforces its invariants, and exposes the sealed,
// read-mostly structure every query borrows.
package graph

import (
	"sync"

	"github.com/chingiztob/cascade/internal/models"
	"github.com/chingiztob/cascade/internal/spatial"
)

// Graph is the sealed, arena-indexed routing graph: nodes addressed by
// dense integer ID, outgoing edges stored per node, a spatial index over
// the surviving street nodes, and a reverse stop-id lookup. All
// cross-references are integers, never pointers, matching the corpus's
// "arena + indices" construction.
//
// The mutex exists for ExtendWithTransit, not for query-time contention:
// after a build returns, callers are expected to only read. Queries take
// the read lock so a concurrent ExtendWithTransit cannot race a live
// search.
type Graph struct {
	mu sync.RWMutex

	nodes []models.Node
	edges [][]models.Edge // edges[i] = outgoing edges of node i

	stopToNode     map[string]int
	stopHasTransfer map[string]bool

	index *spatial.Index
}

var (
	singleton     *Graph
	singletonOnce sync.Once
)

// GetGraph returns the process-wide singleton graph container, following
// the corpus's GetGraph()/sync.Once convention. It starts out unsealed
// (zero nodes); callers must populate it via Seal with a BuildGraph result
// before routing.
func GetGraph() *Graph {
	singletonOnce.Do(func() {
		singleton = &Graph{
			stopToNode:      make(map[string]int),
			stopHasTransfer: make(map[string]bool),
		}
	})
	return singleton
}

// NodeCount returns the number of nodes currently sealed into the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the total number of outgoing edges across all nodes.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, es := range g.edges {
		n += len(es)
	}
	return n
}

// Node returns the node at the given dense ID.
func (g *Graph) Node(id int) (models.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id < 0 || id >= len(g.nodes) {
		return models.Node{}, false
	}
	return g.nodes[id], true
}

// Edges returns the outgoing edges of a node. The returned slice must not
// be mutated by the caller; it is shared with the sealed graph.
func (g *Graph) Edges(id int) []models.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id < 0 || id >= len(g.edges) {
		return nil
	}
	return g.edges[id]
}

// NodeForStop resolves a feed stop_id to its dense node ID.
func (g *Graph) NodeForStop(stopID string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.stopToNode[stopID]
	return id, ok
}

// Index returns the spatial index over surviving street nodes.
func (g *Graph) Index() *spatial.Index {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.index
}

// Seal installs a freshly built node/edge/index set into the singleton
// graph, taking the write lock so no concurrent query observes a partial
// swap. Used once at startup after BuildGraph assembles the initial graph
// off of the singleton.
func (g *Graph) Seal(built *Graph) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = built.nodes
	g.edges = built.edges
	g.stopToNode = built.stopToNode
	g.stopHasTransfer = built.stopHasTransfer
	g.index = built.index
}

// New assembles a sealed Graph directly from already-built node/edge
// arrays, bypassing Builder. Exported for callers that assemble a graph
// from a precomputed snapshot (and for routing/itinerary/analysis tests
// that need a small fixture graph without a full feed directory).
func New(nodes []models.Node, edges [][]models.Edge, stopToNode map[string]int, index *spatial.Index) *Graph {
	return &Graph{
		nodes:           nodes,
		edges:           edges,
		stopToNode:      stopToNode,
		stopHasTransfer: make(map[string]bool),
		index:           index,
	}
}
