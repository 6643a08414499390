package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/chingiztob/cascade/internal/graph"
)

func main() {
	log.Println("cascade graph rebuild tool")
	log.Println("==========================")

	scheduleDir := getEnv("SCHEDULE_DIR", "./data/schedule")
	streetPath := getEnv("STREET_PATH", "./data/streets.gob")
	departure := parseUint32(getEnv("GRAPH_DEPARTURE", "0"))
	duration := parseUint32(getEnv("GRAPH_DURATION", "86400"))
	weekday := getEnv("GRAPH_WEEKDAY", "monday")

	log.Printf("schedule feed: %s", scheduleDir)
	log.Printf("street feed:   %s", streetPath)
	log.Printf("window:        %s +[%ds,%ds)", weekday, departure, departure+duration)

	start := time.Now()
	built, err := graph.BuildGraph(context.Background(), scheduleDir, streetPath, departure, duration, weekday)
	if err != nil {
		log.Fatalf("rebuild failed: %v", err)
	}
	elapsed := time.Since(start)

	g := graph.GetGraph()
	g.Seal(built)

	log.Printf("rebuild completed in %v", elapsed)
	log.Printf("nodes: %d, edges: %d", g.NodeCount(), g.EdgeCount())
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
