package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/BillFoxHQ/BillFox/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

// Cache key prefixes shared across the application.
const (
	BundleTimelineKeyPrefix = "timeline:"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// BundleTimelineKey builds the cache key for a bundle's projected timeline.
func BundleTimelineKey(bundleUUID string) string {
	return BundleTimelineKeyPrefix + bundleUUID
}

// InvalidateBundleTimeline drops the cached timeline after a committed repair.
func InvalidateBundleTimeline(bundleUUID string) {
	if err := Delete(BundleTimelineKey(bundleUUID)); err != nil && err != redis.Nil {
		log.Printf("Warning: could not invalidate timeline cache for bundle %s: %v", bundleUUID, err)
	}
}
