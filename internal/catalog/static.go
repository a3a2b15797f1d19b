package catalog

import (
	"context"
	"sync"
)

// StaticCatalog is an in-memory Catalog keyed by product and version id.
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[string]map[string]Snapshot
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{products: make(map[string]map[string]Snapshot)}
}

// Add registers one version of a product.
func (c *StaticCatalog) Add(productID, versionID string, s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.products[productID] == nil {
		c.products[productID] = make(map[string]Snapshot)
	}
	c.products[productID][versionID] = s
}

func (c *StaticCatalog) Lookup(ctx context.Context, productID, versionID string) (Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	versions, ok := c.products[productID]
	if !ok {
		return Snapshot{}, ErrUnknownProduct
	}
	if versionID != "" {
		s, ok := versions[versionID]
		if !ok {
			return Snapshot{}, ErrUnknownProduct
		}
		return s, nil
	}
	if len(versions) != 1 {
		return Snapshot{}, ErrVersionRequired
	}
	for _, s := range versions {
		return s, nil
	}
	return Snapshot{}, ErrUnknownProduct
}
