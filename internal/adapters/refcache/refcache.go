// Package refcache caches per-client reference collections between filter runs.
//
// Entries are keyed by client and a generation number. Writes for a client bump
// its generation, so the next read misses and reloads from the store.
package refcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"

	"github.com/okian/growthdesk/internal/domain/dedupe"
	"github.com/okian/growthdesk/pkg/metrics"
)

// Loader builds the reference collections of one client.
type Loader func(ctx context.Context) (dedupe.References, error)

// Cache is an in-memory reference cache. Concurrent misses for the same key
// share one load, and every caller that waited on a load counts as a miss.
type Cache struct {
	tc  *sfcache.TieredCache[string, dedupe.References]
	ttl time.Duration

	mu    sync.Mutex
	gens  map[string]uint64
	loads map[string]uint64 // completed loads per client
}

// New creates a cache whose entries live for ttl. A non-positive ttl disables
// caching: every Get calls the loader.
func New(ttl time.Duration) (*Cache, error) {
	c := &Cache{ttl: ttl, gens: make(map[string]uint64), loads: make(map[string]uint64)}
	if ttl <= 0 {
		return c, nil
	}
	tc, err := sfcache.NewTiered[string, dedupe.References](null.New[string, dedupe.References](), sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create reference cache: %w", err)
	}
	c.tc = tc
	return c, nil
}

// Get returns the cached references of client, calling load on a miss.
// Load errors are returned and not cached.
func (c *Cache) Get(ctx context.Context, client string, load Loader) (dedupe.References, error) {
	if c.tc == nil {
		metrics.RecordReferenceCacheMiss()
		return load(ctx)
	}

	// A caller that joins another caller's load does not run the loader but
	// still sees the load counter move. A hit that overlaps an unrelated
	// load of the same client may be over-counted as a miss.
	before := c.completedLoads(client)
	refs, err := c.tc.GetSet(ctx, c.key(client), func(ctx context.Context) (dedupe.References, error) {
		defer c.loaded(client)
		return load(ctx)
	}, c.ttl)
	if c.completedLoads(client) != before {
		metrics.RecordReferenceCacheMiss()
	} else {
		metrics.RecordReferenceCacheHit()
	}
	return refs, err
}

// Invalidate drops the cached references of client.
func (c *Cache) Invalidate(client string) {
	c.mu.Lock()
	c.gens[client]++
	c.mu.Unlock()
}

func (c *Cache) loaded(client string) {
	c.mu.Lock()
	c.loads[client]++
	c.mu.Unlock()
}

func (c *Cache) completedLoads(client string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads[client]
}

func (c *Cache) key(client string) string {
	c.mu.Lock()
	gen := c.gens[client]
	c.mu.Unlock()
	return fmt.Sprintf("%s#%d", client, gen)
}
