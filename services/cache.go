package services

import (
	"context"
	"encoding/json"
	"time"

	"envie2sortir-backend/metrics"

	"github.com/redis/go-redis/v9"
)

// jsonCache stores JSON values in Redis. A nil client disables caching.
type jsonCache struct {
	client *redis.Client
	name   string
	prefix string
	ttl    time.Duration
}

func newJSONCache(client *redis.Client, name string, ttl time.Duration) jsonCache {
	return jsonCache{client: client, name: name, prefix: name + ":", ttl: ttl}
}

func (c jsonCache) get(ctx context.Context, key string, out interface{}) bool {
	if c.client == nil {
		return false
	}

	data, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues(c.name, "miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		metrics.CacheLookupsTotal.WithLabelValues(c.name, "miss").Inc()
		return false
	}
	metrics.CacheLookupsTotal.WithLabelValues(c.name, "hit").Inc()
	return true
}

func (c jsonCache) set(ctx context.Context, key string, value interface{}) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, string(data), c.ttl).Err()
}
