package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/orderdesk/internal/domain"
)

type memProducts struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]domain.Product
	lastSale  map[uuid.UUID]decimal.Decimal
	findCalls int
	listCalls int
	lastLimit int
}

func newMemProducts(list ...domain.Product) *memProducts {
	m := &memProducts{byID: map[uuid.UUID]domain.Product{}, lastSale: map[uuid.UUID]decimal.Decimal{}}
	for _, p := range list {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProducts) Search(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = f.Limit
	var out []domain.Product
	for _, p := range m.byID {
		if p.TenantID == f.TenantID && strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memProducts) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok && p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.TenantID == tenantID && strings.EqualFold(p.Name, name) {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memProducts) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	p, ok := m.byID[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Variants, nil
}

func (m *memProducts) SaveWithVariants(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range p.Variants {
		if p.Variants[i].ID == uuid.Nil {
			p.Variants[i].ID = uuid.New()
		}
		p.Variants[i].ProductID = p.ID
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memProducts) UpdateLastSalePrice(ctx context.Context, productID uuid.UUID, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSale[productID] = price
	return nil
}

type memForms map[uuid.UUID]domain.Form

func (m memForms) FindByID(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	f, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

type memCustomers struct {
	list []domain.Customer
	err  error
}

func (m *memCustomers) find(match func(domain.Customer) bool) (*domain.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.list {
		if match(c) {
			c := c
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCustomers) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*domain.Customer, error) {
	return m.find(func(c domain.Customer) bool { return c.TenantID == tenantID && c.Phone == phone })
}

func (m *memCustomers) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.Customer, error) {
	return m.find(func(c domain.Customer) bool { return c.TenantID == tenantID && strings.EqualFold(c.Email, email) })
}

func (m *memCustomers) Save(ctx context.Context, c *domain.Customer) error {
	m.list = append(m.list, *c)
	return nil
}

type memOrders struct {
	created      []domain.Order
	newCustomers []domain.Customer
	err          error
}

func (m *memOrders) Create(ctx context.Context, o *domain.Order, newCustomer *domain.Customer) error {
	if m.err != nil {
		return m.err
	}
	if newCustomer != nil {
		m.newCustomers = append(m.newCustomers, *newCustomer)
	}
	m.created = append(m.created, *o)
	return nil
}

func (m *memOrders) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, o := range m.created {
		if o.ID == id {
			o := o
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memVariantStore struct {
	entries     map[uuid.UUID][]domain.Variant
	failGet     bool
	invalidated []uuid.UUID
}

func newMemVariantStore() *memVariantStore {
	return &memVariantStore{entries: map[uuid.UUID][]domain.Variant{}}
}

func (m *memVariantStore) Get(ctx context.Context, id uuid.UUID) ([]domain.Variant, bool, error) {
	if m.failGet {
		return nil, false, errors.New("redis down")
	}
	v, ok := m.entries[id]
	return v, ok, nil
}

func (m *memVariantStore) Set(ctx context.Context, id uuid.UUID, v []domain.Variant) error {
	m.entries[id] = v
	return nil
}

func (m *memVariantStore) Invalidate(ctx context.Context, id uuid.UUID) error {
	delete(m.entries, id)
	m.invalidated = append(m.invalidated, id)
	return nil
}
