package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chingiztob/cascade/internal/coreerr"
	"github.com/chingiztob/cascade/internal/ingest"
	"github.com/chingiztob/cascade/internal/models"
)

func streetData() *ingest.StreetData {
	return &ingest.StreetData{
		Nodes: []ingest.StreetNode{
			{ID: 1, Lon: 0, Lat: 0},
			{ID: 2, Lon: 0.001, Lat: 0},
			{ID: 3, Lon: 0.002, Lat: 0},
			{ID: 99, Lon: 5, Lat: 5}, // disconnected island, dropped by retainLargestComponent
		},
		Ways: []ingest.StreetWay{
			{NodeIDs: []int64{1, 2}, Foot: ingest.FootAllowed},
			{NodeIDs: []int64{2, 3}, Foot: ingest.FootAllowed},
			{NodeIDs: []int64{2, 99}, Foot: ingest.FootDenied}, // rejected by foot access, not component size
		},
	}
}

func TestAddStreetDataBuildsBidirectionalWalkEdges(t *testing.T) {
	b := newBuilder()
	b.addStreetData(streetData())

	assert.Len(t, b.nodes, 4)
	n1, n2 := b.streetExtToNode[1], b.streetExtToNode[2]

	var forward, backward *models.Edge
	for i, e := range b.edges[n1] {
		if e.To == n2 {
			forward = &b.edges[n1][i]
		}
	}
	for i, e := range b.edges[n2] {
		if e.To == n1 {
			backward = &b.edges[n2][i]
		}
	}

	assert.NotNil(t, forward)
	assert.NotNil(t, backward)
	assert.Equal(t, forward.Weight, backward.Weight)
	assert.Greater(t, forward.Weight, 0.0)
}

func TestRetainLargestComponentDropsIsland(t *testing.T) {
	b := newBuilder()
	b.addStreetData(streetData())
	b.retainLargestComponent()

	// node 99 has no admitted edge (its only way was FootDenied), so it never
	// joins a component with nodes 1-3 and must be dropped.
	assert.Len(t, b.nodes, 3)
	for _, n := range b.nodes {
		assert.NotEqual(t, int64(99), n.StreetID)
	}
}

func TestAddScheduleDataRejectsNegativeWeight(t *testing.T) {
	b := newBuilder()
	b.addStreetData(streetData())
	b.retainLargestComponent()

	data := &ingest.ScheduleData{
		Stops: []ingest.ScheduleStop{
			{StopID: "s1", Lon: 0, Lat: 0},
			{StopID: "s2", Lon: 0.001, Lat: 0},
		},
		Trips: []ingest.ScheduleTrip{
			{
				TripID:  "t1",
				RouteID: "r1",
				StopTimes: []ingest.ScheduleStopTime{
					{StopID: "s1", Sequence: 1, Departure: 200},
					{StopID: "s2", Sequence: 2, Arrival: 100}, // arrives before the tail departs
				},
			},
		},
	}

	err := b.addScheduleData(data)
	assert.Error(t, err)
	ce, ok := err.(*coreerr.Error)
	assert.True(t, ok)
	assert.Equal(t, coreerr.NegativeWeight, ce.Kind)
	assert.Contains(t, ce.Message, "depart(s1)=200 > arrive(s2)=100 on route r1")
}

func TestAddScheduleDataMergesTripsOnSamePair(t *testing.T) {
	b := newBuilder()
	b.addStreetData(streetData())
	b.retainLargestComponent()

	data := &ingest.ScheduleData{
		Stops: []ingest.ScheduleStop{
			{StopID: "s1", Lon: 0, Lat: 0},
			{StopID: "s2", Lon: 0.001, Lat: 0},
		},
		Trips: []ingest.ScheduleTrip{
			{
				TripID:  "t1",
				RouteID: "r1",
				StopTimes: []ingest.ScheduleStopTime{
					{StopID: "s1", Sequence: 1, Departure: 300},
					{StopID: "s2", Sequence: 2, Arrival: 360},
				},
			},
			{
				TripID:  "t2",
				RouteID: "r1",
				StopTimes: []ingest.ScheduleStopTime{
					{StopID: "s1", Sequence: 1, Departure: 100},
					{StopID: "s2", Sequence: 2, Arrival: 160},
				},
			},
		},
	}

	err := b.addScheduleData(data)
	assert.NoError(t, err)

	from := b.stopToNode["s1"]
	var transit *models.Edge
	for i, e := range b.edges[from] {
		if e.Kind == models.EdgeTransit {
			transit = &b.edges[from][i]
		}
	}
	assert.NotNil(t, transit)
	assert.Len(t, transit.Trips, 2)

	b.sortTransitTrips()
	assert.Equal(t, uint32(100), b.edges[from][indexOfTransit(b.edges[from])].Trips[0].Departure)
	assert.Equal(t, uint32(300), b.edges[from][indexOfTransit(b.edges[from])].Trips[1].Departure)
}

func indexOfTransit(edges []models.Edge) int {
	for i, e := range edges {
		if e.Kind == models.EdgeTransit {
			return i
		}
	}
	return -1
}

func TestConnectStopsToStreetsIsIdempotent(t *testing.T) {
	b := newBuilder()
	b.addStreetData(streetData())
	b.retainLargestComponent()
	index := b.buildSpatialIndex()

	data := &ingest.ScheduleData{
		Stops: []ingest.ScheduleStop{{StopID: "s1", Lon: 0.0005, Lat: 0}},
	}
	assert.NoError(t, b.addScheduleData(data))

	assert.NoError(t, b.connectStopsToStreets(index))
	stopNode := b.stopToNode["s1"]
	transfersAfterFirst := len(b.edges[stopNode])

	// re-running with stopHasTransfer already set must not add a duplicate
	// TransferEdge pair (the idempotency guard in step 5).
	assert.NoError(t, b.connectStopsToStreets(index))
	assert.Equal(t, transfersAfterFirst, len(b.edges[stopNode]))
}

func TestBuildGraphAssemblesFullPipeline(t *testing.T) {
	b := newBuilder()
	b.addStreetData(streetData())
	b.retainLargestComponent()
	index := b.buildSpatialIndex()

	data := &ingest.ScheduleData{
		Stops: []ingest.ScheduleStop{
			{StopID: "s1", Lon: 0, Lat: 0},
			{StopID: "s2", Lon: 0.002, Lat: 0},
		},
		Trips: []ingest.ScheduleTrip{
			{
				TripID:  "t1",
				RouteID: "r1",
				StopTimes: []ingest.ScheduleStopTime{
					{StopID: "s1", Sequence: 1, Departure: 100},
					{StopID: "s2", Sequence: 2, Arrival: 200},
				},
			},
		},
	}
	assert.NoError(t, b.addScheduleData(data))
	b.sortTransitTrips()
	assert.NoError(t, b.connectStopsToStreets(index))

	g := &Graph{
		nodes:           b.nodes,
		edges:           b.edges,
		stopToNode:      b.stopToNode,
		stopHasTransfer: b.stopHasTransfer,
		index:           index,
	}

	assert.Equal(t, 5, g.NodeCount()) // 3 street nodes + 2 stops
	assert.Greater(t, g.EdgeCount(), 0)

	s1, ok := g.NodeForStop("s1")
	assert.True(t, ok)
	assert.True(t, b.stopHasTransfer["s1"])
	assert.NotEmpty(t, g.Edges(s1))
}
