package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// cache is the read-through store in front of the goal and event accessors.
// Keys carry a per-user generation; writers bump it instead of deleting keys,
// so a reader that loaded before the write stores under a key nobody reads.
type cache interface {
	get(ctx context.Context, key string, dst any) (bool, error)
	set(ctx context.Context, key string, value any) error
	generation(ctx context.Context, userID int) (int64, error)
	bump(ctx context.Context, userID int) error
}

func generationKey(userID int) string { return fmt.Sprintf("athlete:%d:gen", userID) }

func activeGoalKey(userID int, gen int64) string {
	return fmt.Sprintf("athlete:%d:v%d:goal:active", userID, gen)
}

func athleteEventKey(userID int, gen int64, date string) string {
	return fmt.Sprintf("athlete:%d:v%d:event:%s", userID, gen, date)
}

// redisCache stores JSON values with a fixed TTL.
type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func newRedisCache(ctx context.Context, url string, ttl time.Duration) (*redisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &redisCache{rdb: rdb, ttl: ttl}, nil
}

func (r *redisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *redisCache) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, raw, r.ttl).Err()
}

// generation reads the user's counter; an unset counter is generation 0.
func (r *redisCache) generation(ctx context.Context, userID int) (int64, error) {
	gen, err := r.rdb.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// bump has no TTL: an expired counter would resurrect old generations.
func (r *redisCache) bump(ctx context.Context, userID int) error {
	return r.rdb.Incr(ctx, generationKey(userID)).Err()
}

func (r *redisCache) Close() error { return r.rdb.Close() }

// noopCache is used when REDIS_URL is unset: every read misses.
type noopCache struct{}

func (noopCache) get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) set(context.Context, string, any) error         { return nil }
func (noopCache) generation(context.Context, int) (int64, error) { return 0, nil }
func (noopCache) bump(context.Context, int) error                { return nil }

// cachedLoad returns the cached value for the user's current generation, or
// calls load and caches its result under that generation. The generation is
// read before load runs, so a write that lands mid-load leaves the result on a
// stale key. Cache failures are logged and never fail the request. Errors from
// load (including errNotFound) are returned uncached.
func cachedLoad[T any](ctx context.Context, c cache, userID int, keyFor func(gen int64) string, load func() (T, error)) (T, error) {
	gen, err := c.generation(ctx, userID)
	if err != nil {
		log.Printf("[cachedLoad] generation for user %d: %v", userID, err)
		return load()
	}
	key := keyFor(gen)

	var v T
	hit, err := c.get(ctx, key, &v)
	if err != nil {
		log.Printf("[cachedLoad] get %s: %v", key, err)
	}
	if hit {
		return v, nil
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := c.set(ctx, key, v); err != nil {
		log.Printf("[cachedLoad] set %s: %v", key, err)
	}
	return v, nil
}

// invalidate retires every cached accessor value for userID. Call it after the
// write has committed. Failures are logged instead of failing the write.
func invalidate(ctx context.Context, c cache, userID int) {
	if err := c.bump(ctx, userID); err != nil {
		log.Printf("[invalidate] user %d: %v", userID, err)
	}
}
