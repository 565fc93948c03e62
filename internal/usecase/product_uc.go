package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/phenrril/orderdesk/internal/domain"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

type ProductUC struct {
	Products domain.ProductRepo
	// Cache is optional.
	Cache domain.VariantStore
}

func (uc *ProductUC) Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]domain.Product, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant id", domain.ErrInvalidInput)
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}
	list, err := uc.Products.Search(ctx, domain.ProductFilter{TenantID: tenantID, Query: strings.TrimSpace(query), Limit: limit})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Product{}
	}
	return list, nil
}

// Variants returns the variant list of a product, reading through the cache
// when one is configured. Cache failures are logged and bypassed.
func (uc *ProductUC) Variants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product id", domain.ErrInvalidInput)
	}
	if uc.Cache != nil {
		list, ok, err := uc.Cache.Get(ctx, productID)
		if err != nil {
			zlog.Warn().Err(err).Str("product_id", productID.String()).Msg("variant cache read failed")
		} else if ok {
			return list, nil
		}
	}
	list, err := uc.Products.ListVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Variant{}
	}
	if uc.Cache != nil {
		if err := uc.Cache.Set(ctx, productID, list); err != nil {
			zlog.Warn().Err(err).Str("product_id", productID.String()).Msg("variant cache write failed")
		}
	}
	return list, nil
}

// Import upserts products by name within the tenant. Variants are matched to
// existing ones by SKU, then by color and size, so their ids survive a
// re-import.
func (uc *ProductUC) Import(ctx context.Context, tenantID uuid.UUID, products []domain.Product) (int, error) {
	if tenantID == uuid.Nil {
		return 0, fmt.Errorf("%w: tenant id", domain.ErrInvalidInput)
	}
	n := 0
	for i := range products {
		p := products[i]
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		p.TenantID = tenantID
		p.Active = true

		existing, err := uc.Products.FindByName(ctx, tenantID, p.Name)
		switch {
		case err == nil:
			p.ID = existing.ID
			p.LastSalePrice = existing.LastSalePrice
			if p.Category == "" {
				p.Category = existing.Category
			}
			if p.Description == "" {
				p.Description = existing.Description
			}
			for j := range p.Variants {
				if v, ok := matchVariant(existing.Variants, p.Variants[j]); ok {
					p.Variants[j].ID = v.ID
				}
			}
		case errors.Is(err, domain.ErrNotFound):
			p.ID = uuid.New()
		default:
			return n, fmt.Errorf("import %q: %w", p.Name, err)
		}

		if err := uc.Products.SaveWithVariants(ctx, &p); err != nil {
			return n, fmt.Errorf("import %q: %w", p.Name, err)
		}
		if uc.Cache != nil {
			if err := uc.Cache.Invalidate(ctx, p.ID); err != nil {
				zlog.Warn().Err(err).Str("product_id", p.ID.String()).Msg("variant cache invalidate failed")
			}
		}
		n++
	}
	return n, nil
}

func matchVariant(list []domain.Variant, v domain.Variant) (domain.Variant, bool) {
	if v.SKU != "" {
		for _, x := range list {
			if strings.EqualFold(x.SKU, v.SKU) {
				return x, true
			}
		}
	}
	for _, x := range list {
		if strings.EqualFold(x.Color, v.Color) && strings.EqualFold(x.Size, v.Size) && (x.SKU == "" || v.SKU == "") {
			return x, true
		}
	}
	return domain.Variant{}, false
}
