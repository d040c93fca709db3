package cache

import (
	"context"
	"sync"
	"time"

	"auction-sync/internal/domain"
)

type entry struct {
	data      []byte
	stale     bool
	fetchedAt time.Time
	gen       uint64
}

// QueryCache is an in-process domain.QueryStore. Entries older than ttl
// read as missing.
type QueryCache struct {
	entries map[domain.QueryKey]*entry
	ttl     time.Duration
	now     domain.Clock
	mutex   sync.RWMutex
}

func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		entries: make(map[domain.QueryKey]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *QueryCache) Get(ctx context.Context, key domain.QueryKey) (*domain.CachedQuery, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return nil, domain.ErrNotFound
	}

	return &domain.CachedQuery{
		Key:       key,
		Data:      e.data,
		Stale:     e.stale,
		FetchedAt: e.fetchedAt,
	}, nil
}

// Generation ignores expiry so a fetch started before eviction still
// compares against the last invalidation.
func (c *QueryCache) Generation(ctx context.Context, key domain.QueryKey) (uint64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if e, ok := c.entries[key]; ok {
		return e.gen, nil
	}
	return 0, nil
}

func (c *QueryCache) Put(ctx context.Context, key domain.QueryKey, data []byte, generation uint64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var current uint64
	if e, ok := c.entries[key]; ok {
		current = e.gen
	}
	if current != generation {
		return false, nil
	}

	c.entries[key] = &entry{
		data:      data,
		fetchedAt: c.now(),
		gen:       generation,
	}
	return true, nil
}

func (c *QueryCache) MarkStale(ctx context.Context, target domain.InvalidationTarget) ([]domain.QueryKey, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var keys []domain.QueryKey
	for key, e := range c.entries {
		if !target.Matches(key) {
			continue
		}
		e.stale = true
		e.gen++
		keys = append(keys, key)
	}
	return keys, nil
}

func (c *QueryCache) StaleKeys(ctx context.Context) ([]domain.QueryKey, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var keys []domain.QueryKey
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			continue
		}
		if e.stale {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (c *QueryCache) Delete(ctx context.Context, key domain.QueryKey) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *QueryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) expired(e *entry) bool {
	return c.ttl > 0 && c.now().Sub(e.fetchedAt) > c.ttl
}

var _ domain.QueryStore = (*QueryCache)(nil)
