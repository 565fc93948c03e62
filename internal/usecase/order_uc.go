package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/phenrril/orderdesk/internal/composer"
	"github.com/phenrril/orderdesk/internal/domain"
	"github.com/phenrril/orderdesk/internal/formfield"
)

type OrderUC struct {
	Forms     domain.FormRepo
	Products  domain.ProductRepo
	Customers domain.CustomerRepo
	Orders    domain.OrderRepo
	// MaxProducts applies to forms that do not set their own cap.
	MaxProducts int
}

// Submit validates a submission against the form and the tenant catalog and
// stores it as a pending order.
func (uc *OrderUC) Submit(ctx context.Context, req composer.SubmitRequest) (*domain.Order, error) {
	formID, err := uuid.Parse(strings.TrimSpace(req.FormID))
	if err != nil {
		return nil, fmt.Errorf("%w: form id %q", domain.ErrInvalidInput, req.FormID)
	}
	form, err := uc.Forms.FindByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("form %s: %w", formID, err)
	}
	if !form.Active {
		return nil, fmt.Errorf("form %s is closed: %w", formID, domain.ErrNotFound)
	}

	payload, err := composer.DecodeSubmitRequest(req)
	if err != nil {
		var lineErr *domain.InvalidLineError
		if errors.As(err, &lineErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if len(payload.SelectedProducts) == 0 {
		return nil, domain.ErrEmptySelection
	}
	if limit := uc.capFor(form); len(payload.SelectedProducts) > limit {
		return nil, &domain.CapacityExceededError{Max: limit}
	}

	items, err := uc.buildItems(ctx, form.TenantID, payload)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptySelection
	}
	total := payload.Total()
	if total.GreaterThan(domain.MaxAmount) {
		return nil, fmt.Errorf("%w: order total exceeds %s", domain.ErrInvalidInput, domain.MaxAmount)
	}

	o := &domain.Order{
		ID:        uuid.New(),
		TenantID:  form.TenantID,
		FormID:    form.ID,
		Status:    domain.OrderStatusPending,
		FormData:  flattenFormData(req.FormData),
		Items:     items,
		Total:     total,
		CreatedAt: time.Now(),
	}

	var newCustomer *domain.Customer
	o.CustomerID, newCustomer, err = uc.resolveCustomer(ctx, form.TenantID, o.FormData)
	if err != nil {
		return nil, err
	}
	if err := uc.Orders.Create(ctx, o, newCustomer); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	for _, it := range items {
		if it.UnitPrice.IsPositive() {
			if err := uc.Products.UpdateLastSalePrice(ctx, it.ProductID, it.UnitPrice); err != nil {
				zlog.Warn().Err(err).Str("product_id", it.ProductID.String()).Msg("last sale price not updated")
			}
		}
	}
	return o, nil
}

func (uc *OrderUC) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: order id", domain.ErrInvalidInput)
	}
	return uc.Orders.FindByID(ctx, id)
}

func (uc *OrderUC) capFor(f *domain.Form) int {
	switch {
	case f.MaxProducts > 0:
		return f.MaxProducts
	case uc.MaxProducts > 0:
		return uc.MaxProducts
	}
	return composer.DefaultMaxProducts
}

// buildItems checks every line against the catalog and snapshots it. Lines
// with quantity zero are left out of the order.
func (uc *OrderUC) buildItems(ctx context.Context, tenantID uuid.UUID, p composer.Payload) ([]domain.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(p.SelectedProducts))
	seen := map[uuid.UUID]bool{}
	for _, l := range p.SelectedProducts {
		id, err := uuid.Parse(l.ProductID)
		if err != nil {
			return nil, &domain.InvalidLineError{Reason: fmt.Sprintf("product id %q is not valid", l.ProductID)}
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	found, err := uc.Products.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	catalog := make(map[uuid.UUID]domain.Product, len(found))
	for _, prod := range found {
		catalog[prod.ID] = prod
	}

	items := make([]domain.OrderItem, 0, len(p.SelectedProducts))
	for _, l := range p.SelectedProducts {
		key, err := composer.ResolveKey(l)
		if err != nil {
			return nil, err
		}
		pid := uuid.MustParse(l.ProductID)
		prod, ok := catalog[pid]
		if !ok {
			return nil, &domain.InvalidLineError{Reason: fmt.Sprintf("product %s is not in the catalog", pid)}
		}

		item := domain.OrderItem{
			ID:        uuid.New(),
			ProductID: pid,
			LineKey:   key,
			Name:      prod.Name,
			Qty:       p.ProductQuantities[key],
			UnitPrice: p.ProductPrices[key],
		}
		if vid := composer.VariantOf(l); vid != "" {
			id, err := uuid.Parse(vid)
			if err != nil {
				return nil, &domain.InvalidLineError{Reason: fmt.Sprintf("variant id %q is not valid", vid)}
			}
			v, ok := prod.FindVariant(id)
			if !ok {
				return nil, &domain.InvalidLineError{Reason: fmt.Sprintf("variant %s does not belong to product %s", id, pid)}
			}
			item.VariantID = &v.ID
			item.Color, item.Size, item.SKU = v.Color, v.Size, v.SKU
		} else if prod.HasVariants {
			return nil, &domain.InvalidLineError{Reason: fmt.Sprintf("product %s: %v", pid, domain.ErrVariantRequired)}
		}

		if item.Qty == 0 {
			continue
		}
		item.Subtotal = composer.LineTotal(item.Qty, item.UnitPrice)
		if item.Subtotal.GreaterThan(domain.MaxAmount) {
			return nil, &domain.InvalidLineError{Reason: fmt.Sprintf("subtotal of %s exceeds %s", key, domain.MaxAmount)}
		}
		items = append(items, item)
	}
	return items, nil
}

// resolveCustomer finds the customer by phone, then email. When neither
// matches a new customer is returned for the caller to persist.
func (uc *OrderUC) resolveCustomer(ctx context.Context, tenantID uuid.UUID, formData map[string]string) (*uuid.UUID, *domain.Customer, error) {
	c := formfield.ExtractCustomer(formData)
	if c.Phone == "" && c.Email == "" {
		return nil, nil, nil
	}

	lookups := []struct {
		value string
		find  func(context.Context, uuid.UUID, string) (*domain.Customer, error)
	}{
		{c.Phone, uc.Customers.FindByPhone},
		{c.Email, uc.Customers.FindByEmail},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		existing, err := l.find(ctx, tenantID, l.value)
		if err == nil {
			return &existing.ID, nil, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("find customer: %w", err)
		}
	}

	c.ID = uuid.New()
	c.TenantID = tenantID
	if c.Name == "" {
		c.Name = firstNonEmpty(c.Phone, c.Email)
	}
	return &c.ID, &c, nil
}

// flattenFormData stores every answer as text. Nested values are kept as JSON.
func flattenFormData(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch x := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = x
		case float64, bool, json.Number:
			out[k] = fmt.Sprint(x)
		default:
			b, err := json.Marshal(x)
			if err != nil {
				out[k] = fmt.Sprint(x)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
