package remote

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// ObjectCache fronts FetchRemoteObject with a cache-forever lookup:
// content-addressed objects never change once named by checksum, so a
// cache hit never needs invalidation. A nil *ObjectCache is valid and
// always misses, so single-user installs need no Redis at all.
type ObjectCache struct {
	client *redis.Client
	prefix string
}

// NewObjectCache builds a cache from a redis connection URL (as
// produced by redis.ParseURL, including miniredis addresses in tests).
func NewObjectCache(redisURL string) (*ObjectCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "invalid redis URL %s", redisURL)
	}
	return &ObjectCache{client: redis.NewClient(opts), prefix: "object:"}, nil
}

// NewObjectCacheWithClient wraps an existing client, for tests against
// miniredis or a shared pool.
func NewObjectCacheWithClient(client *redis.Client) *ObjectCache {
	return &ObjectCache{client: client, prefix: "object:"}
}

func (c *ObjectCache) key(checksum, typ string) string {
	return fmt.Sprintf("%s%s.%s", c.prefix, checksum, typ)
}

// Get returns a cached object's bytes, or (nil, false) on a miss or a
// nil cache.
func (c *ObjectCache) Get(ctx context.Context, checksum, typ string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(checksum, typ)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores an object's bytes with no expiration: immutable content
// addressed by its own checksum is safe to keep forever.
func (c *ObjectCache) Put(ctx context.Context, checksum, typ string, data []byte) error {
	if c == nil {
		return nil
	}
	if err := c.client.Set(ctx, c.key(checksum, typ), data, 0).Err(); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to cache object %s.%s", checksum, typ)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *ObjectCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// FetchRemoteObjectCached fetches via the cache first, falling back to
// fetcher.FetchRemoteObject on a miss and populating the cache with the
// result.
func FetchRemoteObjectCached(ctx context.Context, fetcher *Fetcher, cache *ObjectCache, remoteBaseURL, checksum, typ string) ([]byte, error) {
	if data, ok := cache.Get(ctx, checksum, typ); ok {
		return data, nil
	}

	data, err := fetcher.FetchRemoteObject(ctx, remoteBaseURL, checksum, typ)
	if err != nil {
		return nil, err
	}

	_ = cache.Put(ctx, checksum, typ, data)
	return data, nil
}
