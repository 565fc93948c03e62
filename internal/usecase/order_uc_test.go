package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/orderdesk/internal/composer"
	"github.com/phenrril/orderdesk/internal/domain"
	"github.com/phenrril/orderdesk/internal/usecase"
)

type orderFixture struct {
	tenant    uuid.UUID
	form      domain.Form
	shirt     domain.Product
	mug       domain.Product
	products  *memProducts
	customers *memCustomers
	orders    *memOrders
	uc        *usecase.OrderUC
}

func newOrderFixture(maxProducts int) *orderFixture {
	f := &orderFixture{tenant: uuid.New()}
	f.form = domain.Form{ID: uuid.New(), TenantID: f.tenant, Name: "Orders", MaxProducts: maxProducts, Active: true}
	shirtID := uuid.New()
	f.shirt = domain.Product{ID: shirtID, TenantID: f.tenant, Name: "Shirt", BasePrice: decimal.NewFromInt(1200), HasVariants: true,
		Variants: []domain.Variant{
			{ID: uuid.New(), ProductID: shirtID, Color: "red", SKU: "SH-R"},
			{ID: uuid.New(), ProductID: shirtID, Color: "blue", SKU: "SH-B"},
		}}
	f.mug = domain.Product{ID: uuid.New(), TenantID: f.tenant, Name: "Mug", BasePrice: decimal.NewFromInt(350)}
	f.products = newMemProducts(f.shirt, f.mug)
	f.customers = &memCustomers{}
	f.orders = &memOrders{}
	f.uc = &usecase.OrderUC{
		Forms:     memForms{f.form.ID: f.form},
		Products:  f.products,
		Customers: f.customers,
		Orders:    f.orders,
	}
	return f
}

func (f *orderFixture) request(t *testing.T, build func(c *composer.Composer), formData map[string]any) composer.SubmitRequest {
	t.Helper()
	c := composer.New(composer.WithMaxProducts(50))
	build(c)
	payload, err := composer.BuildPayload(c.Selection())
	require.NoError(t, err)
	req, err := payload.Encode(f.form.ID.String(), formData)
	require.NoError(t, err)
	return req
}

func TestOrderUC_Submit(t *testing.T) {
	f := newOrderFixture(20)
	req := f.request(t, func(c *composer.Composer) {
		k, err := c.AddLine(f.shirt, &f.shirt.Variants[1])
		require.NoError(t, err)
		c.SetQuantity(k, 2)
		c.SetPrice(k, "100")
		k, err = c.AddLine(f.mug, nil)
		require.NoError(t, err)
		c.SetPrice(k, "50")
	}, map[string]any{"Full name": "Nimal", "Phone": "077 123 4567", "Boxes": 2.0, "Extras": []any{"gift wrap"}})

	o, err := f.uc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, f.tenant, o.TenantID)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(250)), o.Total.String())
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Shirt", o.Items[0].Name)
	assert.Equal(t, "blue", o.Items[0].Color)
	assert.Equal(t, "SH-B", o.Items[0].SKU)
	assert.Equal(t, composer.KeyFor(f.shirt.ID.String(), f.shirt.Variants[1].ID.String()), o.Items[0].LineKey)
	assert.True(t, o.Items[0].Subtotal.Equal(decimal.NewFromInt(200)))
	assert.Nil(t, o.Items[1].VariantID)

	assert.Equal(t, "2", o.FormData["Boxes"])
	assert.Equal(t, `["gift wrap"]`, o.FormData["Extras"])

	require.Len(t, f.orders.newCustomers, 1)
	cust := f.orders.newCustomers[0]
	assert.Equal(t, "Nimal", cust.Name)
	assert.Equal(t, "0771234567", cust.Phone)
	require.NotNil(t, o.CustomerID)
	assert.Equal(t, cust.ID, *o.CustomerID)

	assert.True(t, f.products.lastSale[f.shirt.ID].Equal(decimal.NewFromInt(100)))
	assert.True(t, f.products.lastSale[f.mug.ID].Equal(decimal.NewFromInt(50)))
}

func TestOrderUC_SubmitReusesCustomer(t *testing.T) {
	f := newOrderFixture(20)
	known := domain.Customer{ID: uuid.New(), TenantID: f.tenant, Email: "ana@example.com"}
	f.customers.list = append(f.customers.list, known)
	req := f.request(t, func(c *composer.Composer) {
		_, err := c.AddLine(f.mug, nil)
		require.NoError(t, err)
	}, map[string]any{"Email": "Ana@Example.com"})

	o, err := f.uc.Submit(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, o.CustomerID)
	assert.Equal(t, known.ID, *o.CustomerID)
	assert.Empty(t, f.orders.newCustomers)
}

func TestOrderUC_SubmitAnonymous(t *testing.T) {
	f := newOrderFixture(20)
	req := f.request(t, func(c *composer.Composer) {
		_, err := c.AddLine(f.mug, nil)
		require.NoError(t, err)
	}, map[string]any{"Notes": "ring twice"})

	o, err := f.uc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, o.CustomerID)
	assert.Empty(t, f.orders.newCustomers)
}

func TestOrderUC_SubmitDropsZeroQuantityLines(t *testing.T) {
	f := newOrderFixture(20)
	req := f.request(t, func(c *composer.Composer) {
		k, _ := c.AddLine(f.mug, nil)
		c.SetQuantity(k, 0)
		_, _ = c.AddLine(f.shirt, &f.shirt.Variants[0])
	}, nil)

	o, err := f.uc.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "red", o.Items[0].Color)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(1200)))

	onlyZero := f.request(t, func(c *composer.Composer) {
		k, _ := c.AddLine(f.mug, nil)
		c.SetQuantity(k, 0)
	}, nil)
	_, err = f.uc.Submit(context.Background(), onlyZero)
	assert.ErrorIs(t, err, domain.ErrEmptySelection)
}

func TestOrderUC_SubmitRejects(t *testing.T) {
	f := newOrderFixture(1)
	ctx := context.Background()
	var lineErr *domain.InvalidLineError
	var capErr *domain.CapacityExceededError

	_, err := f.uc.Submit(ctx, composer.SubmitRequest{FormID: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Submit(ctx, composer.SubmitRequest{FormID: uuid.NewString()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.Submit(ctx, composer.SubmitRequest{FormID: f.form.ID.String()})
	assert.ErrorIs(t, err, domain.ErrEmptySelection)

	_, err = f.uc.Submit(ctx, composer.SubmitRequest{FormID: f.form.ID.String(), SelectedProducts: "[{"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	twoLines := f.request(t, func(c *composer.Composer) {
		_, _ = c.AddLine(f.mug, nil)
		_, _ = c.AddLine(f.shirt, &f.shirt.Variants[0])
	}, nil)
	_, err = f.uc.Submit(ctx, twoLines)
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, capErr.Max)

	foreign := domain.Product{ID: uuid.New(), TenantID: uuid.New(), Name: "Foreign"}
	f.products.byID[foreign.ID] = foreign
	_, err = f.uc.Submit(ctx, f.request(t, func(c *composer.Composer) { _, _ = c.AddLine(foreign, nil) }, nil))
	assert.ErrorAs(t, err, &lineErr)

	otherVariant := domain.Variant{ID: uuid.New(), ProductID: f.shirt.ID, Color: "green"}
	shirtWithGhost := f.shirt
	shirtWithGhost.Variants = append([]domain.Variant{}, otherVariant)
	_, err = f.uc.Submit(ctx, f.request(t, func(c *composer.Composer) { _, _ = c.AddLine(shirtWithGhost, &otherVariant) }, nil))
	require.ErrorAs(t, err, &lineErr)
	assert.Contains(t, lineErr.Reason, "does not belong")

	noVariant := composer.SubmitRequest{
		FormID:           f.form.ID.String(),
		SelectedProducts: `[{"productId":"` + f.shirt.ID.String() + `","name":"Shirt"}]`,
	}
	_, err = f.uc.Submit(ctx, noVariant)
	require.ErrorAs(t, err, &lineErr)
	assert.Contains(t, lineErr.Reason, "variant")

	assert.Empty(t, f.orders.created)
}

func TestOrderUC_SubmitRejectsAmountsTooLargeToStore(t *testing.T) {
	f := newOrderFixture(5)
	ctx := context.Background()
	mug, red := f.mug.ID.String(), composer.KeyFor(f.shirt.ID.String(), f.shirt.Variants[0].ID.String())
	submit := func(quantities, prices string) error {
		_, err := f.uc.Submit(ctx, composer.SubmitRequest{
			FormID: f.form.ID.String(),
			SelectedProducts: `[{"productId":"` + mug + `","name":"Mug"},` +
				`{"productId":"` + f.shirt.ID.String() + `","productVariantId":"` + f.shirt.Variants[0].ID.String() + `","name":"Shirt"}]`,
			ProductQuantities: quantities,
			ProductPrices:     prices,
		})
		return err
	}
	var lineErr *domain.InvalidLineError

	err := submit(`{}`, `{"`+mug+`":1e5000000}`)
	require.ErrorAs(t, err, &lineErr)
	assert.Contains(t, lineErr.Reason, "price of "+mug)

	err = submit(`{"`+mug+`":1000000}`, `{"`+mug+`":20000}`)
	require.ErrorAs(t, err, &lineErr)
	assert.Contains(t, lineErr.Reason, "subtotal of "+mug)

	err = submit(`{}`, `{"`+mug+`":6000000000,"`+string(red)+`":6000000000}`)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.orders.created)

	o, err := f.uc.Submit(ctx, composer.SubmitRequest{
		FormID:           f.form.ID.String(),
		SelectedProducts: `[{"productId":"` + mug + `","name":"Mug"}]`,
		ProductPrices:    `{"` + mug + `":12.345}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "12.35", o.Total.String())
}

func TestOrderUC_SubmitClosedFormAndStoreFailure(t *testing.T) {
	f := newOrderFixture(0)
	closed := f.form
	closed.ID = uuid.New()
	closed.Active = false
	f.uc.Forms = memForms{f.form.ID: f.form, closed.ID: closed}

	_, err := f.uc.Submit(context.Background(), composer.SubmitRequest{FormID: closed.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.orders.err = errors.New("connection reset")
	req := f.request(t, func(c *composer.Composer) { _, _ = c.AddLine(f.mug, nil) }, nil)
	_, err = f.uc.Submit(context.Background(), req)
	assert.ErrorContains(t, err, "save order")
	assert.Empty(t, f.products.lastSale)
}

func TestOrderUC_CapFallsBackToDefault(t *testing.T) {
	f := newOrderFixture(0)
	f.uc.MaxProducts = 1
	req := f.request(t, func(c *composer.Composer) {
		_, _ = c.AddLine(f.mug, nil)
		_, _ = c.AddLine(f.shirt, &f.shirt.Variants[0])
	}, nil)
	_, err := f.uc.Submit(context.Background(), req)
	var capErr *domain.CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, capErr.Max)
}

func TestOrderUC_GetRestoresLines(t *testing.T) {
	f := newOrderFixture(20)
	req := f.request(t, func(c *composer.Composer) {
		k, _ := c.AddLine(f.shirt, &f.shirt.Variants[0])
		c.SetQuantity(k, 3)
		c.SetPrice(k, "999.50")
	}, nil)
	o, err := f.uc.Submit(context.Background(), req)
	require.NoError(t, err)

	got, err := f.uc.Get(context.Background(), o.ID)
	require.NoError(t, err)

	c := composer.New()
	require.NoError(t, c.Restore(got.Lines()))
	key := composer.KeyFor(f.shirt.ID.String(), f.shirt.Variants[0].ID.String())
	assert.Equal(t, 3, c.Quantity(key))
	assert.True(t, c.Price(key).Equal(decimal.RequireFromString("999.50")))
	assert.True(t, c.Total().Equal(o.Total))

	_, err = f.uc.Get(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
