// Package cachutil provides a loading cache with expiring entries.
package cachutil

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// LoaderFunc loads the value of key on a cache miss.
type LoaderFunc[V any] func(key string) (V, error)

// Cache caches values by key for a fixed time to live.
// Values are loaded on a miss, concurrent misses of the same key share one load.
// Failed loads are not cached.
type Cache[V any] struct {
	cache *ttlcache.Cache[string, V]
}

// New returns a cache loading missing values with load.
// onErr is called for every failed load and may be nil.
func New[V any](ttl time.Duration, load LoaderFunc[V], onErr func(key string, err error)) *Cache[V] {
	loader := &suppressedLoader[V]{load: load, onErr: onErr}
	return &Cache[V]{cache: ttlcache.New[string, V](
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithLoader[string, V](loader),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)}
}

// Get returns the value of key, loading it if it is missing or expired.
// It returns false if the value could not be loaded.
func (c *Cache[V]) Get(key string) (V, bool) {
	item := c.cache.Get(key)
	if item == nil {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

// Set stores v for key with the default time to live.
func (c *Cache[V]) Set(key string, v V) {
	c.cache.Set(key, v, ttlcache.DefaultTTL)
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.cache.Delete(key)
}

// suppressedLoader suppresses duplicate in-flight loads of the same key.
type suppressedLoader[V any] struct {
	load  LoaderFunc[V]
	onErr func(key string, err error)
	group singleflight.Group
}

// Load implements ttlcache.Loader.
func (l *suppressedLoader[V]) Load(c *ttlcache.Cache[string, V], key string) *ttlcache.Item[string, V] {
	res, err, _ := l.group.Do(key, func() (any, error) {
		v, err := l.load(key)
		if err != nil {
			return nil, err
		}
		return c.Set(key, v, ttlcache.DefaultTTL), nil
	})
	if err != nil {
		if l.onErr != nil {
			l.onErr(key, err)
		}
		return nil
	}
	return res.(*ttlcache.Item[string, V])
}
