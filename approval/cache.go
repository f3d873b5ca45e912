/*
cache.go - Read cache for monthly approval lists

PURPOSE:
  Reads of the approval list for an (office, month) key are frequent - every
  data refresh re-reconciles - while writes are rare human actions. The
  cache keeps one list per key and coalesces concurrent misses into a single
  store round trip via singleflight: a caller that triggers a fetch while an
  identical fetch is in flight waits for and shares that result instead of
  issuing a duplicate request.

INVALIDATION:
  Entries are invalidated only by an explicit Invalidate call after a
  successful write. There is no push/subscription mechanism; other actors'
  concurrent writes become visible on the next refetch. That is a documented
  weak point of the design, not a guarantee.

  The cache is an explicit object owned by the approval service and passed
  by handle - no package-level state.
*/
package approval

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vekst/commission-engine/commission"
)

// Cache holds fetched approval lists keyed by (office, month).
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]MonthlyApproval
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string][]MonthlyApproval)}
}

func cacheKey(office string, month commission.MonthYear) string {
	return office + "|" + string(month)
}

// Get returns the cached list for the key, loading it at most once per
// in-flight miss. A newer request for the same key attaches to the pending
// load rather than starting another.
func (c *Cache) Get(ctx context.Context, office string, month commission.MonthYear, load func(context.Context) ([]MonthlyApproval, error)) ([]MonthlyApproval, error) {
	key := cacheKey(office, month)

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		list, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = list
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]MonthlyApproval), nil
}

// Invalidate drops the entry for the key. Called after every successful
// write so the next read refetches.
func (c *Cache) Invalidate(office string, month commission.MonthYear) {
	c.mu.Lock()
	delete(c.entries, cacheKey(office, month))
	c.mu.Unlock()
}
