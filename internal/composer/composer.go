// Package composer holds the order line state of a single order-entry session:
// which products and variants are selected, their quantities and unit prices,
// the order total and the payload submitted to the order API.
//
// A Composer is owned by one session and is not safe for concurrent use.
package composer

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/orderdesk/internal/domain"
)

const DefaultMaxProducts = 20

type Option func(*Composer)

// WithMaxProducts caps the number of lines. Non-positive values keep the default.
func WithMaxProducts(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxProducts = n
		}
	}
}

type Composer struct {
	maxProducts int
	lines       []domain.OrderLine
	keys        []domain.LineKey
	quantities  domain.QuantityMap
	prices      domain.PriceMap
}

func New(opts ...Option) *Composer {
	c := &Composer{
		maxProducts: DefaultMaxProducts,
		quantities:  domain.QuantityMap{},
		prices:      domain.PriceMap{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Selection is a detached copy of a composer's state.
type Selection struct {
	Lines      []domain.OrderLine
	Quantities domain.QuantityMap
	Prices     domain.PriceMap
}

type ToggleResult int

const (
	Added ToggleResult = iota + 1
	Removed
	NeedsVariant
)

func (r ToggleResult) String() string {
	switch r {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case NeedsVariant:
		return "needs_variant"
	}
	return "unknown"
}

func (c *Composer) MaxProducts() int { return c.maxProducts }

func (c *Composer) Len() int { return len(c.lines) }

// AddLine selects p, or the variant v of p. Adding a line that is already
// selected refreshes its display attributes and keeps quantity and price.
func (c *Composer) AddLine(p domain.Product, v *domain.Variant) (domain.LineKey, error) {
	if err := checkVariant(p, v); err != nil {
		return "", err
	}
	if p.HasVariants && v == nil {
		return "", domain.ErrVariantRequired
	}
	line := lineFor(p, v)
	key := KeyFor(line.ProductID, VariantOf(line))
	if i := c.indexOf(key); i >= 0 {
		c.lines[i] = line
		return key, nil
	}
	if len(c.lines) >= c.maxProducts {
		return "", &domain.CapacityExceededError{Max: c.maxProducts}
	}
	c.lines = append(c.lines, line)
	c.keys = append(c.keys, key)
	c.quantities[key] = 1
	c.prices[key] = clampPrice(p.SalePrice())
	return key, nil
}

// RemoveLine drops the line identified by key. Unknown keys are ignored.
func (c *Composer) RemoveLine(key domain.LineKey) bool {
	i := c.indexOf(key)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	delete(c.quantities, key)
	delete(c.prices, key)
	return true
}

func (c *Composer) RemoveOrderLine(line domain.OrderLine) (bool, error) {
	key, err := ResolveKey(line)
	if err != nil {
		return false, err
	}
	return c.RemoveLine(key), nil
}

// RemoveProduct drops every line of productID and returns how many were removed.
func (c *Composer) RemoveProduct(productID string) int {
	n := 0
	for i := len(c.lines) - 1; i >= 0; i-- {
		if sameID(c.lines[i].ProductID, productID) {
			c.RemoveLine(c.keys[i])
			n++
		}
	}
	return n
}

func (c *Composer) SetQuantity(key domain.LineKey, n int) bool {
	if !c.Has(key) {
		return false
	}
	c.quantities[key] = max(0, n)
	return true
}

func (c *Composer) AdjustQuantity(key domain.LineKey, delta int) bool {
	if !c.Has(key) {
		return false
	}
	return c.SetQuantity(key, c.Quantity(key)+delta)
}

// SetPrice parses raw as a decimal amount. Unparseable input stores 0.
func (c *Composer) SetPrice(key domain.LineKey, raw string) bool {
	return c.SetUnitPrice(key, parsePrice(raw))
}

func (c *Composer) SetUnitPrice(key domain.LineKey, price decimal.Decimal) bool {
	if !c.Has(key) {
		return false
	}
	c.prices[key] = clampPrice(price)
	return true
}

// ChangeVariant swaps the variant of oldLine in place, carrying its quantity
// and price over to the new key. When the new key already belongs to another
// line, that line is dropped and the moved values win.
func (c *Composer) ChangeVariant(oldLine domain.OrderLine, v domain.Variant) (domain.LineKey, error) {
	oldKey, err := ResolveKey(oldLine)
	if err != nil {
		return "", err
	}
	i := c.indexOf(oldKey)
	if i < 0 {
		return "", domain.ErrLineNotFound
	}
	if v.ID == uuid.Nil {
		return "", &domain.InvalidLineError{Reason: "missing variant id"}
	}
	current := c.lines[i]
	if v.ProductID != uuid.Nil && !sameID(v.ProductID.String(), current.ProductID) {
		return "", &domain.InvalidLineError{Reason: "variant " + v.ID.String() + " does not belong to product " + current.ProductID}
	}

	qty, ok := c.quantities[oldKey]
	if !ok {
		qty = 1
		if oldLine.Quantity > 0 {
			qty = oldLine.Quantity
		}
	}
	price, ok := c.prices[oldKey]
	if !ok {
		price = decimal.Zero
		if oldLine.Price != nil {
			price = clampPrice(*oldLine.Price)
		}
	}

	moved := current
	moved.ProductVariantID = v.ID.String()
	moved.VariantID = ""
	moved.Color = v.Color
	moved.Size = v.Size
	newKey := KeyFor(moved.ProductID, moved.ProductVariantID)

	collision := -1
	for j, k := range c.keys {
		if j != i && k == newKey {
			collision = j
			break
		}
	}

	delete(c.quantities, oldKey)
	delete(c.prices, oldKey)
	c.lines[i] = moved
	c.keys[i] = newKey
	if collision >= 0 {
		c.removeAt(collision)
	}
	c.quantities[newKey] = qty
	c.prices[newKey] = price
	return newKey, nil
}

// ToggleSelection removes every line of p when p is selected. Otherwise it adds
// p, or reports NeedsVariant without changing anything when p has variants.
func (c *Composer) ToggleSelection(p domain.Product) (ToggleResult, error) {
	if p.ID == uuid.Nil {
		return 0, &domain.InvalidLineError{Reason: "missing product id"}
	}
	pid := p.ID.String()
	if c.HasProduct(pid) {
		c.RemoveProduct(pid)
		return Removed, nil
	}
	if p.HasVariants {
		return NeedsVariant, nil
	}
	if _, err := c.AddLine(p, nil); err != nil {
		return 0, err
	}
	return Added, nil
}

// Restore seeds the composer with lines of an already submitted order, using
// their embedded quantity and price. Nothing is applied if any line is invalid
// or the result would exceed the line cap.
func (c *Composer) Restore(lines []domain.OrderLine) error {
	keys := make([]domain.LineKey, len(lines))
	fresh := map[domain.LineKey]struct{}{}
	for i, l := range lines {
		key, err := ResolveKey(l)
		if err != nil {
			return err
		}
		keys[i] = key
		if !c.Has(key) {
			fresh[key] = struct{}{}
		}
	}
	if len(c.lines)+len(fresh) > c.maxProducts {
		return &domain.CapacityExceededError{Max: c.maxProducts}
	}

	for i, l := range lines {
		key := keys[i]
		qty := 1
		if l.Quantity > 0 {
			qty = l.Quantity
		}
		price := decimal.Zero
		if l.Price != nil {
			price = clampPrice(*l.Price)
		}
		line := normalize(l)
		if j := c.indexOf(key); j >= 0 {
			c.lines[j] = line
		} else {
			c.lines = append(c.lines, line)
			c.keys = append(c.keys, key)
		}
		c.quantities[key] = qty
		c.prices[key] = price
	}
	return nil
}

func (c *Composer) Has(key domain.LineKey) bool { return c.indexOf(key) >= 0 }

func (c *Composer) HasProduct(productID string) bool {
	for _, l := range c.lines {
		if sameID(l.ProductID, productID) {
			return true
		}
	}
	return false
}

func (c *Composer) Quantity(key domain.LineKey) int {
	if q, ok := c.quantities[key]; ok {
		return q
	}
	return 1
}

func (c *Composer) Price(key domain.LineKey) decimal.Decimal {
	return c.prices[key]
}

func (c *Composer) Lines() []domain.OrderLine {
	out := make([]domain.OrderLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Composer) Keys() []domain.LineKey {
	out := make([]domain.LineKey, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *Composer) Selection() Selection {
	s := Selection{
		Lines:      c.Lines(),
		Quantities: make(domain.QuantityMap, len(c.keys)),
		Prices:     make(domain.PriceMap, len(c.keys)),
	}
	for _, k := range c.keys {
		s.Quantities[k] = c.Quantity(k)
		s.Prices[k] = c.prices[k]
	}
	return s
}

func (c *Composer) Total() decimal.Decimal {
	return Total(c.lines, c.quantities, c.prices)
}

func (c *Composer) indexOf(key domain.LineKey) int {
	for i, k := range c.keys {
		if k == key {
			return i
		}
	}
	return -1
}

func (c *Composer) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.keys = append(c.keys[:i], c.keys[i+1:]...)
}

func checkVariant(p domain.Product, v *domain.Variant) error {
	if p.ID == uuid.Nil {
		return &domain.InvalidLineError{Reason: "missing product id"}
	}
	if v == nil {
		return nil
	}
	if v.ID == uuid.Nil {
		return &domain.InvalidLineError{Reason: "missing variant id"}
	}
	if v.ProductID != uuid.Nil && v.ProductID != p.ID {
		return &domain.InvalidLineError{Reason: "variant " + v.ID.String() + " does not belong to product " + p.ID.String()}
	}
	return nil
}

func lineFor(p domain.Product, v *domain.Variant) domain.OrderLine {
	l := domain.OrderLine{ProductID: p.ID.String(), Name: p.Name}
	if v != nil {
		l.ProductVariantID = v.ID.String()
		l.Color = v.Color
		l.Size = v.Size
	}
	return l
}

// normalize trims ids, folds the legacy variant field into ProductVariantID and
// drops embedded quantity/price, which live in the maps once a line is selected.
func normalize(l domain.OrderLine) domain.OrderLine {
	l.ProductID = strings.TrimSpace(l.ProductID)
	l.ProductVariantID = VariantOf(l)
	l.VariantID = ""
	l.Quantity = 0
	l.Price = nil
	return l
}

func parsePrice(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return clampPrice(d)
}

// clampPrice rounds d to cents. Negative amounts and amounts a stored price
// cannot hold become 0.
func clampPrice(d decimal.Decimal) decimal.Decimal {
	n, ok := domain.NormalizeAmount(d)
	if !ok {
		return decimal.Zero
	}
	return n
}

func sameID(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
