// Package redis provides the redis client and the per-reaction expansion
// cache built on it.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/mechstereo/internal/domain/stereo"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mechstereo/pkg/errors"
)

const (
	defaultPrefix = "mechstereo:expansion:"
	defaultTTL    = 24 * time.Hour
)

// ExpansionCache stores oracle expansions of single reactions as JSON.  Keys
// are hashed since resolved reaction keys can be long.
type ExpansionCache struct {
	client       *Client
	logger       logging.Logger
	prefix       string
	ttl          time.Duration
	singleflight singleflight.Group
}

var _ stereo.Cache = (*ExpansionCache)(nil)

type CacheOption func(*ExpansionCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *ExpansionCache) { c.prefix = prefix }
}

// WithTTL sets the entry lifetime.  Zero keeps entries forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *ExpansionCache) { c.ttl = ttl }
}

func NewExpansionCache(client *Client, log logging.Logger, opts ...CacheOption) *ExpansionCache {
	c := &ExpansionCache{
		client: client,
		logger: logging.OrNop(log),
		prefix: defaultPrefix,
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ExpansionCache) fullKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *ExpansionCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	// +/- 10%
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// Get returns the cached expansion of key, or (nil, nil) on a miss.
// Concurrent lookups of the same key share one round trip.
func (c *ExpansionCache) Get(ctx context.Context, key string) (*stereo.CachedExpansion, error) {
	fullKey := c.fullKey(key)
	val, err, _ := c.singleflight.Do(fullKey, func() (interface{}, error) {
		data, err := c.client.Get(ctx, fullKey).Bytes()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
		}
		var e stereo.CachedExpansion
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode cached expansion")
		}
		return &e, nil
	})
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	// Callers may mutate the result; hand each one its own copy.
	shared := val.(*stereo.CachedExpansion)
	out := &stereo.CachedExpansion{Class: shared.Class}
	out.Variants = append(out.Variants, shared.Variants...)
	return out, nil
}

// Put stores e under key with a jittered TTL.
func (c *ExpansionCache) Put(ctx context.Context, key string, e *stereo.CachedExpansion) error {
	if e == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode expansion")
	}
	if err := c.client.Set(ctx, c.fullKey(key), data, c.jitterTTL(c.ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

// Purge deletes every entry under the cache prefix and returns the count.
func (c *ExpansionCache) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.prefix + "*"
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
			}
			deleted += int64(len(keys))
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("expansion cache purged", logging.Int64("deleted", deleted))
	return deleted, nil
}
