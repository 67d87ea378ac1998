package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lobbywatch/backend/internal/lobby"
)

// Cache stores fetched profiles so that players seen again in a later lobby
// do not cost another API call.
type Cache interface {
	// Get returns the cached profiles among ids. Misses are absent.
	Get(ctx context.Context, ids []lobby.SteamID) (map[lobby.SteamID]lobby.ProfileInfo, error)
	Put(ctx context.Context, infos []lobby.ProfileInfo) error
}

const defaultKeyPrefix = "lobbywatch"

// RedisCache is a Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(addr string, ttl time.Duration, prefix string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisCacheWithClient(client, ttl, prefix), nil
}

// NewRedisCacheWithClient wraps an existing client (for testing).
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration, prefix string) *RedisCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// profileKey returns the Redis key for a cached profile.
func (c *RedisCache) profileKey(id lobby.SteamID) string {
	return fmt.Sprintf("%s:profile:%s", c.prefix, id)
}

func (c *RedisCache) Get(ctx context.Context, ids []lobby.SteamID) (map[lobby.SteamID]lobby.ProfileInfo, error) {
	found := make(map[lobby.SteamID]lobby.ProfileInfo)
	if len(ids) == 0 {
		return found, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.profileKey(id)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget profiles: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var info lobby.ProfileInfo
		if err := json.Unmarshal([]byte(s), &info); err != nil {
			continue
		}
		if info.SteamID != ids[i] {
			continue
		}
		found[ids[i]] = info
	}
	return found, nil
}

func (c *RedisCache) Put(ctx context.Context, infos []lobby.ProfileInfo) error {
	if len(infos) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, info := range infos {
		data, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("marshal profile %s: %w", info.SteamID, err)
		}
		pipe.Set(ctx, c.profileKey(info.SteamID), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store profiles: %w", err)
	}
	return nil
}
