package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/chingiztob/cascade/internal/api"
	"github.com/chingiztob/cascade/internal/cache"
	"github.com/chingiztob/cascade/internal/db"
	"github.com/chingiztob/cascade/internal/graph"
	"github.com/chingiztob/cascade/internal/middleware"
)

func main() {
	log.Println("Starting cascade routing server...")

	if _, err := db.GetDB(); err != nil {
		log.Printf("warning: query-audit database unavailable: %v", err)
	} else {
		if err := db.EnsureQueryLogTable(context.Background()); err != nil {
			log.Printf("warning: could not create query_log table: %v", err)
		}
		log.Println("✓ Database connection established")
	}
	defer db.Close()

	rdb, err := cache.GetClient()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Redis connection established")

	scheduleDir := getEnv("SCHEDULE_DIR", "./data/schedule")
	streetPath := getEnv("STREET_PATH", "./data/streets.gob")
	departure := parseUint32(getEnv("GRAPH_DEPARTURE", "0"))
	duration := parseUint32(getEnv("GRAPH_DURATION", "86400"))
	weekday := getEnv("GRAPH_WEEKDAY", "monday")

	built, err := graph.BuildGraph(context.Background(), scheduleDir, streetPath, departure, duration, weekday)
	if err != nil {
		log.Fatalf("Failed to build routing graph: %v", err)
	}
	g := graph.GetGraph()
	g.Seal(built)
	log.Printf("✓ Routing graph assembled: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())

	app := fiber.New(fiber.Config{
		AppName:      "cascade",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	heavyLimiter := middleware.RateLimitMiddleware(rdb, 2, 2000)

	app.Get("/health", api.Health)
	app.Post("/v1/graph/extend", api.ExtendGraph)
	app.Get("/v1/snap", api.SnapPoint)
	app.Get("/v1/routes/one-to-all", api.OneToAll)
	app.Get("/v1/routes/weight", api.OneToOneWeight)
	app.Get("/v1/routes/itinerary", api.DetailedItinerary)
	app.Get("/v1/isochrone", heavyLimiter, api.Isochrone)
	app.Post("/v1/od-matrix", heavyLimiter, api.ODMatrix)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "endpoint not found"})
	})

	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseUint32(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
