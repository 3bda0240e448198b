package stock

import (
	"context"
	"sync"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

// CatalogSource reads the catalog and the version it was read at.
type CatalogSource interface {
	Items(ctx context.Context) ([]model.Item, int64, error)
}

// Cache holds the last catalog read from a source. An entry is refetched once
// it is older than maxAge or after Invalidate. A zero maxAge refetches on
// every Get.
type Cache struct {
	src    CatalogSource
	maxAge time.Duration
	now    func() time.Time

	mu      sync.Mutex
	items   []model.Item
	version int64
	fetched time.Time
	valid   bool
}

// NewCache creates a cache in front of src.
func NewCache(src CatalogSource, maxAge time.Duration) *Cache {
	return &Cache{src: src, maxAge: maxAge, now: time.Now}
}

// Get returns a copy of the catalog and its version, fetching when stale.
func (c *Cache) Get(ctx context.Context) ([]model.Item, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.maxAge <= 0 || c.now().Sub(c.fetched) >= c.maxAge {
		items, version, err := c.src.Items(ctx)
		if err != nil {
			return nil, 0, err
		}
		c.items, c.version, c.fetched, c.valid = items, version, c.now(), true
	}
	return append([]model.Item(nil), c.items...), c.version, nil
}

// Invalidate forces the next Get to fetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
