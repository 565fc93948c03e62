package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/orderdesk/internal/domain"
	"github.com/phenrril/orderdesk/internal/usecase"
)

func TestProductUC_SearchLimits(t *testing.T) {
	tenant := uuid.New()
	repo := newMemProducts(domain.Product{ID: uuid.New(), TenantID: tenant, Name: "Shirt"})
	uc := &usecase.ProductUC{Products: repo}
	ctx := context.Background()

	list, err := uc.Search(ctx, tenant, "  shi ", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, usecase.DefaultSearchLimit, repo.lastLimit)

	_, err = uc.Search(ctx, tenant, "", 1000)
	require.NoError(t, err)
	assert.Equal(t, usecase.MaxSearchLimit, repo.lastLimit)

	list, err = uc.Search(ctx, uuid.New(), "shirt", 5)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = uc.Search(ctx, uuid.Nil, "", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProductUC_VariantsReadThrough(t *testing.T) {
	pid := uuid.New()
	repo := newMemProducts(domain.Product{ID: pid, Name: "Shirt", HasVariants: true,
		Variants: []domain.Variant{{ID: uuid.New(), ProductID: pid, Color: "red"}}})
	cache := newMemVariantStore()
	uc := &usecase.ProductUC{Products: repo, Cache: cache}
	ctx := context.Background()

	first, err := uc.Variants(ctx, pid)
	require.NoError(t, err)
	second, err := uc.Variants(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, "red", first[0].Color)
	assert.Equal(t, 1, repo.listCalls)
	assert.Zero(t, repo.findCalls)

	// A broken cache falls back to the repository.
	cache.failGet = true
	_, err = uc.Variants(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	_, err = uc.Variants(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductUC_VariantsOfSimpleProductIsEmptyList(t *testing.T) {
	pid := uuid.New()
	uc := &usecase.ProductUC{Products: newMemProducts(domain.Product{ID: pid, Name: "Mug"})}
	list, err := uc.Variants(context.Background(), pid)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestProductUC_ImportUpserts(t *testing.T) {
	tenant := uuid.New()
	existingID := uuid.New()
	redID := uuid.New()
	last := decimal.NewFromInt(900)
	repo := newMemProducts(domain.Product{
		ID: existingID, TenantID: tenant, Name: "Shirt", Category: "Apparel", LastSalePrice: &last,
		HasVariants: true, Variants: []domain.Variant{{ID: redID, ProductID: existingID, Color: "Red", Size: "M", SKU: "SH-R-M"}},
	})
	cache := newMemVariantStore()
	uc := &usecase.ProductUC{Products: repo, Cache: cache}

	n, err := uc.Import(context.Background(), tenant, []domain.Product{
		{Name: "shirt", BasePrice: decimal.NewFromInt(1200), HasVariants: true, Variants: []domain.Variant{
			{Color: "Red", Size: "M", SKU: "sh-r-m"},
			{Color: "Blue", Size: "L"},
		}},
		{Name: "Mug", BasePrice: decimal.NewFromInt(350)},
		{Name: "   "},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	shirt := repo.byID[existingID]
	assert.Equal(t, "Apparel", shirt.Category)
	require.NotNil(t, shirt.LastSalePrice)
	assert.True(t, shirt.LastSalePrice.Equal(last))
	require.Len(t, shirt.Variants, 2)
	assert.Equal(t, redID, shirt.Variants[0].ID)
	assert.NotEqual(t, uuid.Nil, shirt.Variants[1].ID)
	assert.Contains(t, cache.invalidated, existingID)

	mug, err := repo.FindByName(context.Background(), tenant, "mug")
	require.NoError(t, err)
	assert.True(t, mug.Active)
	assert.Equal(t, tenant, mug.TenantID)
}
