package graph

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/chingiztob/cascade/internal/coreerr"
	"github.com/chingiztob/cascade/internal/ingest"
	"github.com/chingiztob/cascade/internal/models"
	"github.com/chingiztob/cascade/internal/spatial"
)

// Builder assembles a Graph from ingested street and schedule data,
// following the five-step procedure: street graph, connected components,
// transit edges, trip sorting, stop-to-street transfers. It is single-use:
// the exported entry points drive it to completion; BuildGraph hands back a
// new Graph, and ExtendWithTransit writes the result into the Graph it was
// given.
type Builder struct {
	nodes []models.Node
	edges [][]models.Edge

	streetExtToNode map[int64]int
	stopToNode      map[string]int
	stopHasTransfer map[string]bool
	transitByPair   map[[2]int]int // (from,to) -> index into edges[from] holding the TransitEdge
}

func newBuilder() *Builder {
	return &Builder{
		streetExtToNode: make(map[int64]int),
		stopToNode:      make(map[string]int),
		stopHasTransfer: make(map[string]bool),
		transitByPair:   make(map[[2]int]int),
	}
}

// BuildGraph runs the full assembly procedure. It loads the street feed on
// a worker goroutine (mirroring the original's separate-thread street
// parse, joined with a recover-wrapped errgroup instead of a raw
// thread::spawn/JoinHandle) while the schedule feed loads on the caller's
// goroutine, then assembles the sealed graph once both are in hand.
func BuildGraph(ctx context.Context, scheduleDir, streetPath string, departure, duration uint32, weekday string) (*Graph, error) {
	var streetData *ingest.StreetData

	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = coreerr.New(coreerr.ThreadPanic, "street ingestion worker panicked: %v", r)
			}
		}()
		streetData, err = ingest.LoadStreets(streetPath)
		return err
	})

	scheduleData, scheduleErr := ingest.LoadSchedule(scheduleDir, departure, duration, weekday)

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if scheduleErr != nil {
		return nil, scheduleErr
	}

	b := newBuilder()
	b.addStreetData(streetData)
	b.retainLargestComponent()
	index := b.buildSpatialIndex()

	if err := b.addScheduleData(scheduleData); err != nil {
		return nil, err
	}
	b.sortTransitTrips()

	if err := b.connectStopsToStreets(index); err != nil {
		return nil, err
	}

	log.Printf("graph: assembled %d nodes, %d edges", len(b.nodes), countEdges(b.edges))

	return &Graph{
		nodes:           b.nodes,
		edges:           b.edges,
		stopToNode:      b.stopToNode,
		stopHasTransfer: b.stopHasTransfer,
		index:           index,
	}, nil
}

// ExtendWithTransit merges a second schedule feed into an already-sealed
// graph: new stops are added, trips are merged into existing or new
// TransitEdges, and the transfer-connection step re-runs, skipping stops
// that already carry a TransferEdge (the idempotency guard in §4.1 step 5).
func ExtendWithTransit(g *Graph, scheduleDir string, departure, duration uint32, weekday string) error {
	scheduleData, err := ingest.LoadSchedule(scheduleDir, departure, duration, weekday)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Work on copies of the edge and trip lists: slices already handed out
	// by Edges to in-flight searches are never written to.
	edges := make([][]models.Edge, len(g.edges))
	for i, es := range g.edges {
		edges[i] = append([]models.Edge(nil), es...)
		for j := range edges[i] {
			edges[i][j].Trips = append([]models.Trip(nil), edges[i][j].Trips...)
		}
	}

	b := &Builder{
		nodes:           g.nodes,
		edges:           edges,
		streetExtToNode: nil,
		stopToNode:      g.stopToNode,
		stopHasTransfer: g.stopHasTransfer,
		transitByPair:   rebuildTransitIndex(edges),
	}

	if err := b.addScheduleData(scheduleData); err != nil {
		return err
	}
	b.sortTransitTrips()
	if err := b.connectStopsToStreets(g.index); err != nil {
		return err
	}

	g.nodes = b.nodes
	g.edges = b.edges
	return nil
}

func rebuildTransitIndex(edges [][]models.Edge) map[[2]int]int {
	idx := make(map[[2]int]int)
	for from, es := range edges {
		for i, e := range es {
			if e.Kind == models.EdgeTransit {
				idx[[2]int{from, e.To}] = i
			}
		}
	}
	return idx
}

// --- Step 1-2: street graph + connected components -------------------------

func (b *Builder) addStreetData(street *ingest.StreetData) {
	for _, n := range street.Nodes {
		if _, ok := b.streetExtToNode[n.ID]; ok {
			continue
		}
		id := len(b.nodes)
		b.nodes = append(b.nodes, models.Node{
			ID:       id,
			Kind:     models.NodeStreet,
			Point:    orb.Point{n.Lon, n.Lat},
			StreetID: n.ID,
		})
		b.edges = append(b.edges, nil)
		b.streetExtToNode[n.ID] = id
	}

	// osm4routing-style ways: each way is already an edge between two
	// routing-relevant nodes, carrying the full intermediate geometry.
	for _, way := range street.Ways {
		if way.Foot == ingest.FootDenied || len(way.NodeIDs) < 2 {
			continue
		}
		from, ok1 := b.streetExtToNode[way.NodeIDs[0]]
		to, ok2 := b.streetExtToNode[way.NodeIDs[len(way.NodeIDs)-1]]
		if !ok1 || !ok2 {
			continue
		}

		line := make(orb.LineString, 0, len(way.NodeIDs))
		for _, extID := range way.NodeIDs {
			nodeID, ok := b.streetExtToNode[extID]
			if !ok {
				continue
			}
			line = append(line, b.nodes[nodeID].Point)
		}
		weight := lineLength(line) / models.PedestrianSpeed

		reversed := make(orb.LineString, len(line))
		for i, p := range line {
			reversed[len(line)-1-i] = p
		}

		b.edges[from] = append(b.edges[from], models.Edge{From: from, To: to, Kind: models.EdgeWalk, Weight: weight, Geometry: line})
		b.edges[to] = append(b.edges[to], models.Edge{From: to, To: from, Kind: models.EdgeWalk, Weight: weight, Geometry: reversed})
	}
}

// retainLargestComponent computes connected components over the street-only
// subgraph (WalkEdges, undirected) via union-find, keeps the largest, and
// reindexes survivors into a fresh dense range. Street nodes outside the
// largest component are discarded, along with their incident edges.
func (b *Builder) retainLargestComponent() {
	n := len(b.nodes)
	if n == 0 {
		return
	}

	uf := newUnionFind(n)
	for from, es := range b.edges {
		for _, e := range es {
			if e.Kind == models.EdgeWalk {
				uf.union(from, e.To)
			}
		}
	}

	sizes := make(map[int]int)
	for i := 0; i < n; i++ {
		sizes[uf.find(i)]++
	}
	var largestRoot, largestSize int
	for root, size := range sizes {
		if size > largestSize {
			largestRoot, largestSize = root, size
		}
	}

	remap := make(map[int]int, n)
	var newNodes []models.Node
	var newEdges [][]models.Edge
	for old := 0; old < n; old++ {
		if uf.find(old) != largestRoot {
			continue
		}
		newID := len(newNodes)
		remap[old] = newID
		node := b.nodes[old]
		node.ID = newID
		newNodes = append(newNodes, node)
		newEdges = append(newEdges, nil)
	}
	for old := 0; old < n; old++ {
		newFrom, ok := remap[old]
		if !ok {
			continue
		}
		for _, e := range b.edges[old] {
			newTo, ok := remap[e.To]
			if !ok {
				continue
			}
			e.From, e.To = newFrom, newTo
			newEdges[newFrom] = append(newEdges[newFrom], e)
		}
	}

	b.nodes = newNodes
	b.edges = newEdges
	b.streetExtToNode = make(map[int64]int, len(newNodes))
	for _, node := range newNodes {
		if node.Kind == models.NodeStreet {
			b.streetExtToNode[node.StreetID] = node.ID
		}
	}
}

func (b *Builder) buildSpatialIndex() *spatial.Index {
	points := make([]spatial.Point, 0, len(b.nodes))
	for _, n := range b.nodes {
		if n.Kind == models.NodeStreet {
			points = append(points, spatial.Point{Coord: n.Point, NodeID: n.ID})
		}
	}
	return spatial.Build(points)
}

// --- Step 3-4: transit edges ---------------------------------------------

func (b *Builder) addScheduleData(data *ingest.ScheduleData) error {
	for _, s := range data.Stops {
		if _, ok := b.stopToNode[s.StopID]; ok {
			continue
		}
		id := len(b.nodes)
		b.nodes = append(b.nodes, models.Node{
			ID:     id,
			Kind:   models.NodeStop,
			Point:  orb.Point{s.Lon, s.Lat},
			StopID: s.StopID,
		})
		b.edges = append(b.edges, nil)
		b.stopToNode[s.StopID] = id
	}

	for _, trip := range data.Trips {
		for i := 0; i+1 < len(trip.StopTimes); i++ {
			tail, head := trip.StopTimes[i], trip.StopTimes[i+1]
			if tail.Departure > head.Arrival {
				return coreerr.New(coreerr.NegativeWeight,
					"negative weight: depart(%s)=%d > arrive(%s)=%d on route %s",
					tail.StopID, tail.Departure, head.StopID, head.Arrival, trip.RouteID)
			}

			fromNode, ok := b.stopToNode[tail.StopID]
			if !ok {
				return coreerr.New(coreerr.MissingKey, "stop_time references unknown stop %q", tail.StopID)
			}
			toNode, ok := b.stopToNode[head.StopID]
			if !ok {
				return coreerr.New(coreerr.MissingKey, "stop_time references unknown stop %q", head.StopID)
			}

			t := models.Trip{
				Departure:            tail.Departure,
				Arrival:              head.Arrival,
				RouteID:              trip.RouteID,
				WheelchairAccessible: tail.WheelchairAccessible && head.WheelchairAccessible,
			}

			key := [2]int{fromNode, toNode}
			if idx, ok := b.transitByPair[key]; ok {
				b.edges[fromNode][idx].Trips = append(b.edges[fromNode][idx].Trips, t)
			} else {
				b.edges[fromNode] = append(b.edges[fromNode], models.Edge{
					From: fromNode, To: toNode, Kind: models.EdgeTransit, Trips: []models.Trip{t},
				})
				b.transitByPair[key] = len(b.edges[fromNode]) - 1
			}
		}
	}

	return nil
}

func (b *Builder) sortTransitTrips() {
	for from, es := range b.edges {
		for i, e := range es {
			if e.Kind != models.EdgeTransit {
				continue
			}
			trips := e.Trips
			sort.SliceStable(trips, func(a, c int) bool { return trips[a].Departure < trips[c].Departure })
			b.edges[from][i].Trips = trips
		}
	}
}

// --- Step 5: stop-to-street transfers -------------------------------------

func (b *Builder) connectStopsToStreets(index *spatial.Index) error {
	for stopID, stopNode := range b.stopToNode {
		if b.stopHasTransfer[stopID] {
			continue
		}

		streetNode, distMeters, err := index.Nearest(b.nodes[stopNode].Point)
		if err != nil {
			return err
		}
		weight := distMeters / models.PedestrianSpeed

		b.edges[stopNode] = append(b.edges[stopNode], models.Edge{
			From: stopNode, To: streetNode, Kind: models.EdgeTransfer, Weight: weight,
		})
		b.edges[streetNode] = append(b.edges[streetNode], models.Edge{
			From: streetNode, To: stopNode, Kind: models.EdgeTransfer, Weight: weight,
		})
		b.stopHasTransfer[stopID] = true
	}
	return nil
}

// --- helpers ---------------------------------------------------------------

func lineLength(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += haversineMeters(line[i-1][1], line[i-1][0], line[i][1], line[i][0])
	}
	return total
}

// haversineMeters returns the great-circle distance between two lon/lat
// points in meters.
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

func countEdges(edges [][]models.Edge) int {
	n := 0
	for _, es := range edges {
		n += len(es)
	}
	return n
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
