package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/riskcalc/platform/internal/qdiabetes"
)

// ErrCacheMiss is returned by Cache.Get when nothing is stored for a transcript.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores extraction results by transcript.
type Cache interface {
	Get(ctx context.Context, transcript string) (qdiabetes.PartialInput, error)
	Set(ctx context.Context, transcript string, variables qdiabetes.PartialInput, ttl time.Duration) error
}

// RedisCache is a Cache backed by go-redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a cache using client. Keys are namespaced under
// "qdiabetes:extraction:".
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "qdiabetes:extraction:"}
}

// Key returns the cache key for a transcript. Case and whitespace differences
// map to the same key.
func (c *RedisCache) Key(transcript string) string {
	return c.prefix + transcriptHash(transcript)
}

func transcriptHash(transcript string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(transcript)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, transcript string) (qdiabetes.PartialInput, error) {
	raw, err := c.client.Get(ctx, c.Key(transcript)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return qdiabetes.PartialInput{}, ErrCacheMiss
		}
		return qdiabetes.PartialInput{}, fmt.Errorf("failed to read cache: %w", err)
	}

	var p qdiabetes.PartialInput
	if err := json.Unmarshal(raw, &p); err != nil {
		return qdiabetes.PartialInput{}, fmt.Errorf("failed to decode cached variables: %w", err)
	}
	return p, nil
}

func (c *RedisCache) Set(ctx context.Context, transcript string, variables qdiabetes.PartialInput, ttl time.Duration) error {
	raw, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}
	return c.client.Set(ctx, c.Key(transcript), raw, ttl).Err()
}
