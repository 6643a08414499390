// Package cache memoizes the three expensive derived-analysis responses —
// itinerary, OD matrix, isochrone — behind Redis, with the corpus's
// SetNX-based distributed lock guarding against a cache-stampede on a cold
// key.
package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"

	"github.com/chingiztob/cascade/internal/itinerary"
)

var (
	client     *redis.Client
	clientOnce sync.Once
	clientErr  error
)

// Config holds Redis configuration.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
	MutexTTL time.Duration
}

// LoadConfigFromEnv loads Redis configuration from environment variables.
func LoadConfigFromEnv() *Config {
	port, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, _ := time.ParseDuration(getEnv("CACHE_TTL", "10m"))
	mutexTTL, _ := time.ParseDuration(getEnv("CACHE_MUTEX_TTL", "5s"))

	return &Config{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     port,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		TTL:      ttl,
		MutexTTL: mutexTTL,
	}
}

// GetClient returns the global Redis client (singleton pattern).
func GetClient() (*redis.Client, error) {
	clientOnce.Do(func() {
		config := LoadConfigFromEnv()

		opts := &redis.Options{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Password:     config.Password,
			DB:           config.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		}

		if getEnv("REDIS_TLS_ENABLED", "false") == "true" {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		client = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			clientErr = fmt.Errorf("failed to connect to Redis: %w", err)
			return
		}
	})

	return client, clientErr
}

// Close closes the Redis client.
func Close() {
	if client != nil {
		client.Close()
	}
}

// ItineraryKey, ODMatrixKey, and IsochroneKey generate deterministic cache
// keys by hashing the query's coordinates and parameters, mirroring the
// corpus's RouteKey hashing scheme.
func ItineraryKey(fromLat, fromLon, toLat, toLon float64, t0 uint32, wheelchair bool) string {
	data := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%d,%t", fromLat, fromLon, toLat, toLon, t0, wheelchair)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("itinerary:%x", hash[:8])
}

func ODMatrixKey(ids []string, t0 uint32) string {
	data := fmt.Sprintf("%v,%d", ids, t0)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("odmatrix:%x", hash[:8])
}

func IsochroneKey(lat, lon float64, t0 uint32, cutoff, buffer float64) string {
	data := fmt.Sprintf("%.6f,%.6f,%d,%.3f,%.6f", lat, lon, t0, cutoff, buffer)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("isochrone:%x", hash[:8])
}

// LockKey generates a mutex lock key for any of the above.
func LockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// GetItinerary retrieves a cached itinerary, or nil on a cache miss.
func GetItinerary(ctx context.Context, key string) (*itinerary.Itinerary, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var it itinerary.Itinerary
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached itinerary: %w", err)
	}
	return &it, nil
}

// SetItinerary caches an itinerary under key.
func SetItinerary(ctx context.Context, key string, it *itinerary.Itinerary, ttl time.Duration) error {
	c, err := GetClient()
	if err != nil {
		return err
	}

	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to marshal itinerary: %w", err)
	}
	return c.Set(ctx, key, data, ttl).Err()
}

// GetODMatrix retrieves a cached OD matrix, or nil on a cache miss.
func GetODMatrix(ctx context.Context, key string) (map[string]map[string]float64, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var matrix map[string]map[string]float64
	if err := json.Unmarshal(data, &matrix); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached OD matrix: %w", err)
	}
	return matrix, nil
}

// SetODMatrix caches an OD matrix under key.
func SetODMatrix(ctx context.Context, key string, matrix map[string]map[string]float64, ttl time.Duration) error {
	c, err := GetClient()
	if err != nil {
		return err
	}

	data, err := json.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("failed to marshal OD matrix: %w", err)
	}
	return c.Set(ctx, key, data, ttl).Err()
}

// GetIsochrone retrieves a cached isochrone polygon, or nil on a cache miss.
func GetIsochrone(ctx context.Context, key string) (orb.MultiPolygon, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var poly orb.MultiPolygon
	if err := json.Unmarshal(data, &poly); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached isochrone: %w", err)
	}
	return poly, nil
}

// SetIsochrone caches an isochrone polygon under key.
func SetIsochrone(ctx context.Context, key string, poly orb.MultiPolygon, ttl time.Duration) error {
	c, err := GetClient()
	if err != nil {
		return err
	}

	data, err := json.Marshal(poly)
	if err != nil {
		return fmt.Errorf("failed to marshal isochrone: %w", err)
	}
	return c.Set(ctx, key, data, ttl).Err()
}

// AcquireLock attempts to acquire a distributed lock. Returns true if the
// lock was acquired, false if it is already held.
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c, err := GetClient()
	if err != nil {
		return false, err
	}
	return c.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock releases a distributed lock.
func ReleaseLock(ctx context.Context, key string) error {
	c, err := GetClient()
	if err != nil {
		return err
	}
	return c.Del(ctx, key).Err()
}

// WaitForItinerary polls for a lock's release and then retrieves the
// result another goroutine computed, avoiding a thundering herd on a cold
// itinerary key.
func WaitForItinerary(ctx context.Context, key string, maxWait time.Duration) (*itinerary.Itinerary, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	lockKey := LockKey(key)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		exists, err := c.Exists(ctx, lockKey).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return GetItinerary(ctx, key)
		}
		time.Sleep(100 * time.Millisecond)
	}

	return nil, fmt.Errorf("timeout waiting for lock")
}

// WaitForODMatrix is WaitForItinerary's OD-matrix counterpart.
func WaitForODMatrix(ctx context.Context, key string, maxWait time.Duration) (map[string]map[string]float64, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	lockKey := LockKey(key)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		exists, err := c.Exists(ctx, lockKey).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return GetODMatrix(ctx, key)
		}
		time.Sleep(100 * time.Millisecond)
	}

	return nil, fmt.Errorf("timeout waiting for lock")
}

// WaitForIsochrone is WaitForItinerary's isochrone counterpart.
func WaitForIsochrone(ctx context.Context, key string, maxWait time.Duration) (orb.MultiPolygon, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	lockKey := LockKey(key)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		exists, err := c.Exists(ctx, lockKey).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return GetIsochrone(ctx, key)
		}
		time.Sleep(100 * time.Millisecond)
	}

	return nil, fmt.Errorf("timeout waiting for lock")
}

// HealthCheck performs a health check on the Redis connection.
func HealthCheck(ctx context.Context) error {
	c, err := GetClient()
	if err != nil {
		return fmt.Errorf("Redis client not initialized: %w", err)
	}
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
