// Package cache provides a caching decorator for branch fetchers.
// Entries are evicted least-recently-used first and expire after a TTL, so a
// re-expanded person is served from memory until the entry goes stale.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	"kujisan/pkg/observability"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const rootKey = "\x00root"

// CachingFetcher wraps a BranchFetcher with an in-memory LRU cache.
// Absent branches are cached too, so repeated toggles of a leaf do not hit
// the source.
type CachingFetcher struct {
	next ports.BranchFetcher
	ttl  time.Duration
	lru  *expirable.LRU[string, *cacheEntry]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	now     func() time.Time
	logger  *zap.Logger
	metrics *observability.Collector
}

// cacheEntry holds either one branch (possibly nil for an absent person) or
// the root list
type cacheEntry struct {
	branch *entities.TreePerson
	roots  []*entities.TreePerson
	expiry time.Time
}

// Stats is a point-in-time view of cache effectiveness
type Stats struct {
	Items     int     `json:"items"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// NewCachingFetcher creates a cache around next. A ttl of zero keeps entries
// until they are evicted.
func NewCachingFetcher(next ports.BranchFetcher, ttl time.Duration, maxItems int, logger *zap.Logger, metrics *observability.Collector) *CachingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxItems <= 0 {
		maxItems = 1
	}
	return &CachingFetcher{
		next:    next,
		ttl:     ttl,
		lru:     expirable.NewLRU[string, *cacheEntry](maxItems, nil, ttl),
		now:     time.Now,
		logger:  logger.Named("branch_cache"),
		metrics: metrics,
	}
}

// FetchRoot returns the cached root branches or loads them
func (c *CachingFetcher) FetchRoot(ctx context.Context) ([]*entities.TreePerson, error) {
	if entry, ok := c.get(rootKey); ok {
		return cloneAll(entry.roots), nil
	}

	roots, err := c.next.FetchRoot(ctx)
	if err != nil {
		return nil, err
	}
	c.set(rootKey, &cacheEntry{roots: cloneAll(roots)})
	return roots, nil
}

// FetchBranch returns the cached branch for id or loads it. Errors are never
// cached.
func (c *CachingFetcher) FetchBranch(ctx context.Context, id valueobjects.PersonID) (*entities.TreePerson, error) {
	key := id.String()
	if entry, ok := c.get(key); ok {
		return entry.branch.Clone(), nil
	}

	branch, err := c.next.FetchBranch(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(key, &cacheEntry{branch: branch.Clone()})
	return branch, nil
}

// Invalidate drops the cached branch for id
func (c *CachingFetcher) Invalidate(id valueobjects.PersonID) {
	c.lru.Remove(id.String())
}

// Purge drops everything
func (c *CachingFetcher) Purge() {
	n := c.lru.Len()
	c.lru.Purge()
	c.logger.Info("Purged branch cache", zap.Int("count", n))
}

// GetStats returns cache statistics
func (c *CachingFetcher) GetStats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	hitRate := float64(0)
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Items:     c.lru.Len(),
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}

func (c *CachingFetcher) get(key string) (*cacheEntry, bool) {
	entry, ok := c.lru.Get(key)
	if ok && c.ttl > 0 && c.now().After(entry.expiry) {
		c.lru.Remove(key)
		ok = false
	}

	if !ok {
		c.misses.Add(1)
		c.metrics.RecordCache(false)
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.RecordCache(true)
	return entry, true
}

func (c *CachingFetcher) set(key string, entry *cacheEntry) {
	entry.expiry = c.now().Add(c.ttl)
	if c.lru.Add(key, entry) {
		c.evictions.Add(1)
	}
}

func cloneAll(people []*entities.TreePerson) []*entities.TreePerson {
	out := make([]*entities.TreePerson, 0, len(people))
	for _, p := range people {
		out = append(out, p.Clone())
	}
	return out
}
