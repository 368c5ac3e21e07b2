package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	DefaultCacheTTL    = 5 * time.Minute
	DefaultCachePrefix = "suggest:"
)

// Cached stores search results of another catalog in Redis.
// Cache failures are logged and never reach the caller; failures of the
// wrapped catalog are returned unchanged and are not cached.
type Cached struct {
	next   suggest.Catalog
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewRedisClient connects to the Redis server described by url.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// NewCached wraps next with a Redis result cache.
func NewCached(next suggest.Catalog, client redis.Cmdable, ttl time.Duration, prefix string) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &Cached{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}
}

// Search implements suggest.Catalog.
func (c *Cached) Search(ctx context.Context, req suggest.SearchRequest) ([]suggest.CatalogEntry, error) {
	key := c.Key(req)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entries []suggest.CatalogEntry
		decodeErr := msgpack.Unmarshal(data, &entries)
		if decodeErr == nil {
			log.Debug("cache hit", "key", key, "count", len(entries))
			return entries, nil
		}
		log.Warnf("Dropping unreadable cache entry %s: %v", key, decodeErr)
	case errors.Is(err, redis.Nil):
	default:
		log.Warnf("Cache read failed for %s: %v", key, err)
	}

	entries, err := c.next.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []suggest.CatalogEntry{}
	}

	data, err = msgpack.Marshal(entries)
	if err != nil {
		log.Warnf("Cache encode failed for %s: %v", key, err)
		return entries, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warnf("Cache write failed for %s: %v", key, err)
	}
	return entries, nil
}

// Key returns the cache key for req. Requests differing in term, limit,
// post type or exclusions never share a key.
func (c *Cached) Key(req suggest.SearchRequest) string {
	parts := []string{
		req.Term,
		strconv.Itoa(req.Limit),
		req.PostType,
		strings.Join(req.Excluded.Strings(), ","),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return c.prefix + hex.EncodeToString(sum[:16])
}

// CacheScope hashes the parts a cached result depends on besides the
// request: the backend, the build of its data and the searched fields.
// Appended to the key prefix, it keeps results of another build apart.
func CacheScope(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:6])
}
