// Package models holds the tagged-union data types shared by graph assembly,
// routing, and itinerary assembly: stops, street nodes, trips, and the three
// edge kinds that make up the time-dependent graph.
package models

import "github.com/paulmach/orb"

// NodeKind tags which variant of the Stop/StreetNode union a Node holds.
type NodeKind uint8

const (
	NodeStop NodeKind = iota
	NodeStreet
)

// PedestrianSpeed is the fixed walking speed, in meters per second, used to
// convert street-segment and snap distances into traversal times.
const PedestrianSpeed = 1.39

// Node is the tagged union {Stop, StreetNode}. Every node in the graph,
// regardless of kind, is addressed by a dense integer ID in [0, N).
type Node struct {
	ID    int
	Kind  NodeKind
	Point orb.Point // lon, lat

	// StopID is set only when Kind == NodeStop; it is the external,
	// feed-provided stop identifier.
	StopID string

	// StreetID is set only when Kind == NodeStreet; it is the external,
	// feed-provided OSM-style node identifier.
	StreetID int64
}

// Trip is one atomic scheduled movement between two adjacent stops on a
// single route. Trips are value-typed: they are copied into a TransitEdge's
// trip list and are owned by neither endpoint node.
type Trip struct {
	Departure             uint32 // seconds since day origin; may exceed 86400
	Arrival               uint32
	RouteID               string
	WheelchairAccessible  bool
}

// EdgeKind tags which variant of {TransitEdge, TransferEdge, WalkEdge} an
// Edge holds.
type EdgeKind uint8

const (
	EdgeTransit EdgeKind = iota
	EdgeTransfer
	EdgeWalk
)

// Edge is the tagged union {TransitEdge, TransferEdge, WalkEdge}. Only the
// fields relevant to Kind are populated; the cost oracle switches on Kind.
type Edge struct {
	From, To int
	Kind     EdgeKind

	// Trips is populated only for EdgeTransit, sorted by Departure
	// ascending (strictly non-decreasing) once assembly completes.
	Trips []Trip

	// Weight is the constant traversal time in seconds, populated for
	// EdgeTransfer and EdgeWalk.
	Weight float64

	// Geometry is the polyline of the edge, when the feed supplied shape
	// data (TransitEdge) or always (WalkEdge). Nil for TransferEdge.
	Geometry orb.LineString
}

// SnappedPoint is a client-visible handle binding an external lon/lat to the
// nearest street node in a specific graph build. Its lifetime is tied to
// that graph: node indices are meaningless against any other build.
type SnappedPoint struct {
	Point    orb.Point
	NodeID   int
	Distance float64 // pedestrian seconds from NodeID to Point
}

// SegmentKind tags the two possible itinerary-segment shapes plus the
// internal NoService sentinel used by the cost oracle.
type SegmentKind uint8

const (
	SegmentTransit SegmentKind = iota
	SegmentPedestrian
	SegmentNoService
)

// Segment is one leg of a reconstructed itinerary, or the oracle's per-edge
// cost-computation result.
type Segment struct {
	Kind     SegmentKind
	Weight   float64
	Geometry orb.LineString

	// Trip is populated only for SegmentTransit.
	Trip Trip
}
