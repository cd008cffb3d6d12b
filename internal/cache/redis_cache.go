package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type cachedInsight struct {
	Text     string    `json:"text"`
	CachedAt time.Time `json:"cached_at"`
}

type RedisInsightCache struct {
	client *redis.Client
}

func NewRedisInsightCache(addr string, password string, db int) *RedisInsightCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisInsightCache{client: client}
}

func (c *RedisInsightCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisInsightCache) Close() error {
	return c.client.Close()
}

func (c *RedisInsightCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var entry cachedInsight
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return "", false, err
	}
	return entry.Text, true, nil
}

func (c *RedisInsightCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if value == "" {
		return nil
	}
	payload, err := json.Marshal(cachedInsight{Text: value, CachedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
