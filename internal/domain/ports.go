package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductRepo interface {
	Search(ctx context.Context, f ProductFilter) ([]Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Product, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Product, error)
	// ListVariants is ErrNotFound for an unknown product.
	ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	SaveWithVariants(ctx context.Context, p *Product) error
	UpdateLastSalePrice(ctx context.Context, productID uuid.UUID, price decimal.Decimal) error
}

type FormRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Form, error)
}

type CustomerRepo interface {
	FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Customer, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
}

type OrderRepo interface {
	// Create persists the order, its items and a new customer (when non-nil)
	// atomically.
	Create(ctx context.Context, o *Order, newCustomer *Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
}

// VariantStore caches variant lists by product id on the server side.
type VariantStore interface {
	Get(ctx context.Context, productID uuid.UUID) ([]Variant, bool, error)
	Set(ctx context.Context, productID uuid.UUID, variants []Variant) error
	Invalidate(ctx context.Context, productID uuid.UUID) error
}
