// Package api exposes the query-surface operations of §6 as fiber HTTP
// handlers, plus a health endpoint; build_graph is not among them, since it
// runs once at process startup. Handlers parse and validate input,
// delegate to the routing/itinerary/analysis packages, and apply the
// cache-first + stampede-guard pattern for the three expensive derived
// analyses.
package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"

	"github.com/chingiztob/cascade/internal/analysis"
	"github.com/chingiztob/cascade/internal/cache"
	"github.com/chingiztob/cascade/internal/coreerr"
	"github.com/chingiztob/cascade/internal/db"
	"github.com/chingiztob/cascade/internal/graph"
	"github.com/chingiztob/cascade/internal/itinerary"
	"github.com/chingiztob/cascade/internal/routing"
)

const cacheTTL = 10 * time.Minute

// ExtendGraph handles POST /v1/graph/extend: extend_with_transit.
func ExtendGraph(c *fiber.Ctx) error {
	var body struct {
		SchedulePath string `json:"schedule_path"`
		Departure    uint32 `json:"departure"`
		Duration     uint32 `json:"duration"`
		Weekday      string `json:"weekday"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	g := graph.GetGraph()
	if err := graph.ExtendWithTransit(g, body.SchedulePath, body.Departure, body.Duration, body.Weekday); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"nodes": g.NodeCount(), "edges": g.EdgeCount()})
}

// SnapPoint handles GET /v1/snap: snap_point.
func SnapPoint(c *fiber.Ctx) error {
	lon, lat, err := parseLonLat(c.Query("lon"), c.Query("lat"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	g := graph.GetGraph()
	snap, err := graph.Snap(g, orb.Point{lon, lat})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"node_id":  snap.NodeID,
		"lon":      lon,
		"lat":      lat,
		"distance": snap.Distance,
	})
}

// OneToAll handles GET /v1/routes/one-to-all: one_to_all. origin is given as
// a geographic point and snapped to its nearest street node; per §4.4 the
// resulting snap-walk distance is added to every returned score, so
// scores[snapped_node_id] is that walk distance rather than zero.
func OneToAll(c *fiber.Ctx) error {
	origin, t0, err := parseOriginPointAndTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	g := graph.GetGraph()
	engine := routing.NewEngine(g)
	scores, snap, err := engine.OneToAllFromPoint(c.Context(), origin, t0)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"scores":          scores,
		"snapped_node_id": snap.NodeID,
		"snap_distance":   snap.Distance,
	})
}

// OneToOneWeight handles GET /v1/routes/weight: one_to_one_weight. Both
// origin and target are geographic points; the returned weight is the full
// door-to-door time, including both endpoints' snap-walk legs.
func OneToOneWeight(c *fiber.Ctx) error {
	origin, t0, err := parseOriginPointAndTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	target, err := parseTargetPoint(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	g := graph.GetGraph()
	engine := routing.NewEngine(g)
	weight, _, _, err := engine.OneToOneWeightFromPoints(c.Context(), origin, target, t0)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"weight_seconds": weight})
}

// DetailedItinerary handles GET /v1/routes/itinerary: detailed_itinerary,
// cache-first with a stampede guard on a cold key. The reconstructed
// segments and duration cover only the node-to-node path; per §8's
// round-trip identity, one_to_one_weight's door-to-door total equals this
// duration plus both endpoints' snap-walk distances.
func DetailedItinerary(c *fiber.Ctx) error {
	origin, t0, err := parseOriginPointAndTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	target, err := parseTargetPoint(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	wheelchair := c.Query("wheelchair") == "true"

	g := graph.GetGraph()
	key := cache.ItineraryKey(origin.Lat(), origin.Lon(), target.Lat(), target.Lon(), t0, wheelchair)

	if cached, err := cache.GetItinerary(c.Context(), key); err == nil && cached != nil {
		return c.JSON(cached.AsFeatureCollection())
	}

	lockKey := cache.LockKey(key)
	acquired, lockErr := cache.AcquireLock(c.Context(), lockKey, 5*time.Second)
	if lockErr == nil && !acquired {
		if cached, err := cache.WaitForItinerary(c.Context(), key, 3*time.Second); err == nil && cached != nil {
			return c.JSON(cached.AsFeatureCollection())
		}
	}
	if acquired {
		defer cache.ReleaseLock(c.Context(), lockKey)
	}

	engine := routing.NewEngine(g)
	segments, _, _, _, err := engine.DetailedItineraryFromPoints(c.Context(), origin, target, t0, wheelchair)
	if err != nil {
		return errorResponse(c, err)
	}
	it := &itinerary.Itinerary{Segments: segments}

	if err := cache.SetItinerary(c.Context(), key, it, cacheTTL); err != nil {
		// Caching failures never fail the query; the result is still returned.
		_ = err
	}

	return c.JSON(it.AsFeatureCollection())
}

// Isochrone handles GET /v1/isochrone, cache-first with a stampede guard.
// origin is a geographic point, snapped to its nearest street node.
func Isochrone(c *fiber.Ctx) error {
	originPoint, t0, err := parseOriginPointAndTime(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	cutoff, err := strconv.ParseFloat(c.Query("cutoff"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing or invalid cutoff"})
	}
	buffer, err := strconv.ParseFloat(c.Query("buffer", "1e-3"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid buffer"})
	}

	g := graph.GetGraph()
	snap, err := graph.Snap(g, originPoint)
	if err != nil {
		return errorResponse(c, err)
	}
	key := cache.IsochroneKey(originPoint.Lat(), originPoint.Lon(), t0, cutoff, buffer)

	if cached, err := cache.GetIsochrone(c.Context(), key); err == nil && cached != nil {
		return c.JSON(fiber.Map{"multipolygon": cached})
	}

	lockKey := cache.LockKey(key)
	acquired, lockErr := cache.AcquireLock(c.Context(), lockKey, 5*time.Second)
	if lockErr == nil && !acquired {
		if cached, err := cache.WaitForIsochrone(c.Context(), key, 3*time.Second); err == nil && cached != nil {
			return c.JSON(fiber.Map{"multipolygon": cached})
		}
	}
	if acquired {
		defer cache.ReleaseLock(c.Context(), lockKey)
	}

	poly := analysis.Isochrone(c.Context(), g, snap.NodeID, t0, cutoff, buffer)
	if err := cache.SetIsochrone(c.Context(), key, poly, cacheTTL); err != nil {
		_ = err
	}

	return c.JSON(fiber.Map{"multipolygon": poly})
}

// ODMatrix handles POST /v1/od-matrix, cache-first with a stampede guard.
func ODMatrix(c *fiber.Ctx) error {
	var body struct {
		Points []analysis.ODPoint `json:"points"`
		T0     uint32             `json:"t0"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.Points) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	ids := make([]string, len(body.Points))
	for i, p := range body.Points {
		ids[i] = p.ID
	}
	key := cache.ODMatrixKey(ids, body.T0)

	if cached, err := cache.GetODMatrix(c.Context(), key); err == nil && cached != nil {
		return c.JSON(fiber.Map{"matrix": cached})
	}

	lockKey := cache.LockKey(key)
	acquired, lockErr := cache.AcquireLock(c.Context(), lockKey, 5*time.Second)
	if lockErr == nil && !acquired {
		if cached, err := cache.WaitForODMatrix(c.Context(), key, 3*time.Second); err == nil && cached != nil {
			return c.JSON(fiber.Map{"matrix": cached})
		}
	}
	if acquired {
		defer cache.ReleaseLock(c.Context(), lockKey)
	}

	g := graph.GetGraph()
	matrix, err := analysis.ODMatrix(c.Context(), g, body.Points, body.T0)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := cache.SetODMatrix(c.Context(), key, matrix, cacheTTL); err != nil {
		_ = err
	}

	return c.JSON(fiber.Map{"matrix": matrix})
}

// Health handles GET /health.
func Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbErr := db.HealthCheck(ctx)
	dbStatus := "ok"
	if dbErr != nil {
		dbStatus = dbErr.Error()
	}

	redisErr := cache.HealthCheck(ctx)
	redisStatus := "ok"
	if redisErr != nil {
		redisStatus = redisErr.Error()
	}

	g := graph.GetGraph()
	status := "healthy"
	httpStatus := fiber.StatusOK
	if redisErr != nil || g.NodeCount() == 0 {
		status = "unhealthy"
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database":    dbStatus,
			"redis":       redisStatus,
			"graph_nodes": g.NodeCount(),
		},
	})
}

// parseOriginPointAndTime parses the origin_lon/origin_lat/t0 query params
// shared by every routing-facing handler that accepts a geographic origin.
func parseOriginPointAndTime(c *fiber.Ctx) (origin orb.Point, t0 uint32, err error) {
	lon, lat, err := parseLonLat(c.Query("origin_lon"), c.Query("origin_lat"))
	if err != nil {
		return orb.Point{}, 0, fmt.Errorf("missing or invalid origin point: %w", err)
	}
	t0Val, err := strconv.ParseUint(c.Query("t0"), 10, 32)
	if err != nil {
		return orb.Point{}, 0, fmt.Errorf("missing or invalid t0")
	}
	return orb.Point{lon, lat}, uint32(t0Val), nil
}

// parseTargetPoint parses the target_lon/target_lat query params shared by
// every routing-facing handler that accepts a geographic target.
func parseTargetPoint(c *fiber.Ctx) (orb.Point, error) {
	lon, lat, err := parseLonLat(c.Query("target_lon"), c.Query("target_lat"))
	if err != nil {
		return orb.Point{}, fmt.Errorf("missing or invalid target point: %w", err)
	}
	return orb.Point{lon, lat}, nil
}

func parseLonLat(lonStr, latStr string) (lon, lat float64, err error) {
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lon")
	}
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lat")
	}
	return lon, lat, nil
}

// errorResponse maps a coreerr.Error's Kind to an HTTP status, matching
// §7's propagation policy.
func errorResponse(c *fiber.Ctx, err error) error {
	kind, status := "unknown", fiber.StatusInternalServerError

	var ce *coreerr.Error
	if e, ok := err.(*coreerr.Error); ok {
		ce = e
	}
	if ce != nil {
		kind = ce.Kind.String()
		switch ce.Kind {
		case coreerr.MissingValue, coreerr.NodeNotFound:
			status = fiber.StatusNotFound
		case coreerr.InvalidData, coreerr.MissingColumn, coreerr.MissingKey, coreerr.CastError, coreerr.NegativeWeight:
			status = fiber.StatusBadRequest
		default:
			status = fiber.StatusInternalServerError
		}
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "kind": kind})
}
