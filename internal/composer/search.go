package composer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/phenrril/orderdesk/internal/domain"
)

type ProductSearcher interface {
	SearchProducts(ctx context.Context, tenantID, query string, limit int) ([]domain.Product, error)
}

// Search keeps the catalog results of the latest query. Starting a query
// cancels the one in flight, and a result that arrives after a newer query
// started is discarded.
type Search struct {
	searcher ProductSearcher
	tenantID string
	limit    int

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	query   string
	results []domain.Product
}

func NewSearch(searcher ProductSearcher, tenantID string, limit int) *Search {
	return &Search{searcher: searcher, tenantID: tenantID, limit: limit}
}

// Run searches for query. applied is false when a newer Run superseded this
// one; its products and error are then dropped. A failed search that is still
// current clears the results and returns a *domain.CatalogUnavailableError.
func (s *Search) Run(ctx context.Context, query string) (products []domain.Product, applied bool, err error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	found, err := s.searcher.SearchProducts(ctx, s.tenantID, query, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return nil, false, nil
	}
	s.cancel = nil
	s.query = query
	if err != nil {
		s.results = nil
		var ce *domain.CatalogUnavailableError
		if !errors.As(err, &ce) {
			err = &domain.CatalogUnavailableError{Op: "search products", Err: err}
		}
		return nil, true, err
	}
	s.results = found
	return found, true, nil
}

func (s *Search) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *Search) Results() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.results))
	copy(out, s.results)
	return out
}

// Find looks productID up in the current results.
func (s *Search) Find(productID string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.results {
		if sameID(p.ID.String(), productID) {
			return p, true
		}
	}
	return domain.Product{}, false
}
