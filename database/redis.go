package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient caches project and consent-settings lookups on the ingestion
// path so every beacon does not hit Postgres.
type RedisClient struct {
	client *redis.Client
}

func NewRedisDB() (*RedisClient, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	var opt *redis.Options
	if parsed, err := redis.ParseURL(fmt.Sprintf("redis://%s", redisURL)); err == nil {
		opt = parsed
	} else {
		opt = &redis.Options{Addr: redisURL}
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 5

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("Successfully connected to Redis!")
	return &RedisClient{client: client}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Get returns the cached value, or "" with ok=false on a miss or error.
// Cache failures are never fatal on the ingestion path.
func (r *RedisClient) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("Redis GET %s failed: %v", key, err)
		return "", false
	}
	return val, true
}

func (r *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("Redis SET %s failed: %v", key, err)
	}
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Redis DEL failed: %v", err)
	}
}
