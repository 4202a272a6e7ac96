package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"GenreFM/core/pipeline"
	"GenreFM/logger"
)

const resultKeyPattern = "genrefm:result:*"

// ResultCache stores pipeline results in Redis as msgpack.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache wraps client. A zero ttl keeps entries forever.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// Get returns the cached result for key; a miss is (nil, nil).
func (c *ResultCache) Get(ctx context.Context, key string) (*pipeline.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Debug("result cache miss", logger.String("key", key))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	res, err := decodeResult(data)
	if err != nil {
		// stale layout from an older build; treat as a miss
		logger.Warn("dropping undecodable cache entry", logger.String("key", key), logger.ErrorField(err))
		_ = c.client.Del(ctx, key).Err()
		return nil, nil
	}
	logger.Debug("result cache hit", logger.String("key", key), logger.Int("dataSize", len(data)))
	return res, nil
}

// Set stores r under key.
func (c *ResultCache) Set(ctx context.Context, key string, r *pipeline.Result) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := encodeResult(r)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	logger.Debug("result cached",
		logger.String("key", key),
		logger.Int("dataSize", len(data)),
		logger.Duration("expiration", c.ttl))
	return nil
}

// Purge deletes every cached result and returns how many keys were removed.
func (c *ResultCache) Purge(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, resultKeyPattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan cached results: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete cached results: %w", err)
			}
			deleted += int(n)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	logger.Info("result cache purged", logger.Int("deletedCount", deleted))
	return deleted, nil
}

func encodeResult(r *pipeline.Result) ([]byte, error) {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

func decodeResult(data []byte) (*pipeline.Result, error) {
	var r pipeline.Result
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}
