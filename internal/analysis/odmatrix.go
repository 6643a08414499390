package analysis

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/chingiztob/cascade/internal/coreerr"
	"github.com/chingiztob/cascade/internal/graph"
	"github.com/chingiztob/cascade/internal/models"
	"github.com/chingiztob/cascade/internal/routing"
)

// ODPoint is one named origin/destination in a matrix request.
type ODPoint struct {
	ID  string
	Lon float64
	Lat float64
}

// maxConcurrentRows bounds how many one-to-all searches run at once,
// matching §5's worker-pool resource model: coarse-grained jobs share a
// bounded pool rather than spawning one goroutine per row unconditionally.
const maxConcurrentRows = 8

// ODMatrix snaps every point to the graph, runs a one-to-all search from
// each on a bounded worker pool, and restricts each row to the requested
// point set via the reverse node->id map built from the snapped inputs —
// so the result is origin-set × origin-set, not origin × every graph node.
// Per §4.4, every row has its own origin's snap-walk distance added as a
// post-step, so a row's diagonal entry (origin to itself) is that origin's
// snap distance rather than zero. The first per-row failure cancels the
// remaining rows and is returned.
func ODMatrix(ctx context.Context, g *graph.Graph, points []ODPoint, t0 uint32) (map[string]map[string]float64, error) {
	nodeToID := make(map[int]string, len(points))
	snaps := make(map[string]models.SnappedPoint, len(points))

	index := g.Index()
	if index == nil {
		return nil, coreerr.New(coreerr.NodeNotFound, "spatial index is empty")
	}

	for _, p := range points {
		snap, err := graph.Snap(g, orb.Point{p.Lon, p.Lat})
		if err != nil {
			return nil, err
		}
		nodeToID[snap.NodeID] = p.ID
		snaps[p.ID] = snap
	}

	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(maxConcurrentRows)

	rows := make(map[string]map[string]float64, len(points))
	var mu sync.Mutex

	for _, p := range points {
		p := p
		eg.Go(func() error {
			if err := sem.Acquire(egCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			origin := snaps[p.ID]
			engine := routing.NewEngine(g)
			scores := engine.OneToAll(egCtx, origin.NodeID, t0)

			row := make(map[string]float64, len(points))
			for nodeID, id := range nodeToID {
				if score, ok := scores[nodeID]; ok {
					row[id] = score + origin.Distance
				}
			}

			mu.Lock()
			rows[p.ID] = row
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return rows, nil
}
