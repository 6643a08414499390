package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestNearestEmptyIndex(t *testing.T) {
	idx := Build(nil)
	_, _, err := idx.Nearest(orb.Point{0, 0})
	assert.Error(t, err)
}

func TestNearestPicksTrueNearestAcrossBoxBoundary(t *testing.T) {
	// A point near the first search box's corner (~1338m away, but within
	// the ~1km initial box along both axes) must not shadow a point that is
	// genuinely closer (~1113m away) yet sits just outside that same box
	// along a single axis. A scan that returns as soon as any candidate is
	// found in the current box — without checking the box is wide enough
	// to rule out anything closer — would wrongly pick the farther point.
	idx := Build([]Point{
		{Coord: orb.Point{0.0085, 0.0085}, NodeID: 1},
		{Coord: orb.Point{0, 0.01}, NodeID: 2},
	})

	nodeID, dist, err := idx.Nearest(orb.Point{0, 0})
	assert.NoError(t, err)
	assert.Equal(t, 2, nodeID)
	assert.Less(t, dist, 1300.0)
}

func TestNearestExpandsUntilFound(t *testing.T) {
	idx := Build([]Point{{Coord: orb.Point{5, 5}, NodeID: 7}})

	nodeID, dist, err := idx.Nearest(orb.Point{0, 0})
	assert.NoError(t, err)
	assert.Equal(t, 7, nodeID)
	assert.Greater(t, dist, 0.0)
}
