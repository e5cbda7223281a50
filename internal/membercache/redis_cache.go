// Package membercache provides the invalidate-on-write Redis cache for team
// member display info. It is best-effort: every failure is reported to the
// caller for logging, and correctness never depends on it.
package membercache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemberInfo is the cached display record for one team member.
type MemberInfo struct {
	UserID   string    `json:"userId"`
	RoleID   string    `json:"roleId"`
	RoleName string    `json:"roleName"`
	AddedBy  string    `json:"addedBy"`
	AddedAt  time.Time `json:"addedAt"`
}

// RedisCache stores one JSON blob per team.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, prefix: "members:", ttl: ttl}
}

func (c *RedisCache) key(teamID string) string {
	return c.prefix + teamID
}

// Get returns the cached member list for a team, or ok=false on a miss.
func (c *RedisCache) Get(ctx context.Context, teamID string) ([]MemberInfo, bool, error) {
	raw, err := c.client.Get(ctx, c.key(teamID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var members []MemberInfo
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return members, true, nil
}

// Put stores the member list for a team with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, teamID string, members []MemberInfo) error {
	raw, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(teamID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Invalidate drops the cached member list for a team.
func (c *RedisCache) Invalidate(ctx context.Context, teamID string) error {
	if err := c.client.Del(ctx, c.key(teamID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
