package composer

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/phenrril/orderdesk/internal/domain"
)

const prefetchParallelism = 4

type VariantLookup interface {
	ProductVariants(ctx context.Context, productID string) ([]domain.Variant, error)
}

// CachedProduct is what a session knows about a product that is not on the
// current catalog page.
type CachedProduct struct {
	ProductID string
	Name      string
	Variants  []domain.Variant
}

// VariantCache resolves variant lists of products referenced by order lines.
// Entries live as long as the cache; failed lookups are not cached.
type VariantCache struct {
	lookup VariantLookup
	log    zerolog.Logger

	mu      sync.RWMutex
	entries map[string]CachedProduct
	group   singleflight.Group
}

func NewVariantCache(lookup VariantLookup, logger zerolog.Logger) *VariantCache {
	return &VariantCache{
		lookup:  lookup,
		log:     logger,
		entries: map[string]CachedProduct{},
	}
}

func (c *VariantCache) Get(productID string) (CachedProduct, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.entries[strings.TrimSpace(productID)]
	return cp, ok
}

// Resolve returns the cached entry for productID, fetching it once if needed.
// Concurrent calls for the same product share one lookup. A failed lookup
// returns ok=false and is only logged.
func (c *VariantCache) Resolve(ctx context.Context, productID, name string) (CachedProduct, bool) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return CachedProduct{}, false
	}
	if cp, ok := c.Get(productID); ok {
		return cp, true
	}
	v, err, _ := c.group.Do(productID, func() (any, error) {
		if cp, ok := c.Get(productID); ok {
			return cp, nil
		}
		variants, err := c.lookup.ProductVariants(ctx, productID)
		if err != nil {
			return nil, err
		}
		cp := CachedProduct{ProductID: productID, Name: name, Variants: variants}
		c.mu.Lock()
		c.entries[productID] = cp
		c.mu.Unlock()
		return cp, nil
	})
	if err != nil {
		c.log.Debug().Err(err).Str("product_id", productID).Msg("variant lookup failed")
		return CachedProduct{}, false
	}
	return v.(CachedProduct), true
}

// Prefetch resolves the products of variant lines that known does not report
// as already loaded. It returns once every lookup has finished.
func (c *VariantCache) Prefetch(ctx context.Context, lines []domain.OrderLine, known func(productID string) bool) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchParallelism)
	seen := map[string]struct{}{}
	for _, l := range lines {
		pid := strings.TrimSpace(l.ProductID)
		if pid == "" || VariantOf(l) == "" {
			continue
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		if known != nil && known(pid) {
			continue
		}
		name := l.Name
		g.Go(func() error {
			c.Resolve(ctx, pid, name)
			return nil
		})
	}
	_ = g.Wait()
}
