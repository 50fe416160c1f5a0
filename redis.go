package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// initRedis initializes the Redis connection
func initRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis:6379"
	}

	opt, err := redis.ParseURL(fmt.Sprintf("redis://%s", redisURL))
	if err != nil {
		// Fallback to simple connection
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	redisClient = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	return nil
}

// Only catalog listings and insight evaluations are cached. Balances,
// budget execution, project financials and invoice state are always
// recomputed from the ledger so they can never drift.

func cacheGet(ctx context.Context, key string, dst any) bool {
	if redisClient == nil {
		return false
	}
	cached, err := redisClient.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(cached), dst) == nil
}

func cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if redisClient == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		redisClient.SetEx(ctx, key, data, ttl)
	}
}

func cacheInvalidate(ctx context.Context, keys ...string) {
	if redisClient == nil || len(keys) == 0 {
		return
	}
	redisClient.Del(ctx, keys...)
}

func insightsCacheKey(userID int64, businessID *int64) string {
	if businessID != nil {
		return fmt.Sprintf("insights:user:%d:business:%d", userID, *businessID)
	}
	return fmt.Sprintf("insights:user:%d:personal", userID)
}

func categoriesCacheKey(userID int64) string {
	return fmt.Sprintf("categories:user:%d", userID)
}

func clientsCacheKey(userID int64) string {
	return fmt.Sprintf("clients:user:%d", userID)
}
