package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"time"

	"songrec/internal/domain"
	"songrec/internal/port"
)

// QueryCache is a bounded LRU cache of neighbor results with a TTL.
// A cache serves one index; build a new cache for a new index.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	results   domain.NeighborResult
	timestamp time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// cacheKey hashes the exact bit patterns of the vector, so only
// bit-identical queries share an entry.
func cacheKey(v domain.FeatureVector, k int) string {
	data := make([]byte, 0, len(v)*8+8)
	for _, x := range v {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(x))
	}
	data = binary.LittleEndian.AppendUint64(data, uint64(k))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(v domain.FeatureVector, k int) (domain.NeighborResult, bool) {
	c.mu.RLock()
	key := cacheKey(v, k)
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return clone(entry.results), true
}

func (c *QueryCache) Put(v domain.FeatureVector, k int, results domain.NeighborResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(v, k)
	entry := &cacheEntry{
		results:   clone(results),
		timestamp: time.Now(),
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func clone(r domain.NeighborResult) domain.NeighborResult {
	if r == nil {
		return nil
	}
	out := make(domain.NeighborResult, len(r))
	copy(out, r)
	return out
}

// CachedSearcher memoizes a NeighborSearcher. Errors are not cached.
type CachedSearcher struct {
	searcher port.NeighborSearcher
	cache    *QueryCache
}

var _ port.NeighborSearcher = (*CachedSearcher)(nil)

func NewCachedSearcher(searcher port.NeighborSearcher, cache *QueryCache) *CachedSearcher {
	return &CachedSearcher{
		searcher: searcher,
		cache:    cache,
	}
}

func (s *CachedSearcher) Query(v domain.FeatureVector, k int) (domain.NeighborResult, error) {
	if results, hit := s.cache.Get(v, k); hit {
		return results, nil
	}

	results, err := s.searcher.Query(v, k)
	if err != nil {
		return nil, err
	}

	s.cache.Put(v, k, results)
	return results, nil
}
