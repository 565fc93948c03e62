package composer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/phenrril/orderdesk/internal/domain"
)

// Payload is the selection as the order API understands it. Quantity and price
// maps only hold keys of SelectedProducts.
type Payload struct {
	SelectedProducts  []domain.OrderLine `json:"selectedProducts"`
	ProductQuantities domain.QuantityMap `json:"productQuantities"`
	ProductPrices     domain.PriceMap    `json:"productPrices"`
}

// SubmitRequest is the body of POST /order/submit. The three selection fields
// carry JSON documents encoded as strings.
type SubmitRequest struct {
	FormID            string         `json:"formId"`
	FormData          map[string]any `json:"formData"`
	SelectedProducts  string         `json:"selectedProducts"`
	ProductQuantities string         `json:"productQuantities"`
	ProductPrices     string         `json:"productPrices"`
}

// SubmitResult is the response of POST /order/submit.
type SubmitResult struct {
	Order struct {
		ID         string          `json:"id"`
		CustomerID string          `json:"customerId,omitempty"`
		Status     string          `json:"status,omitempty"`
		Total      decimal.Decimal `json:"total"`
	} `json:"order"`
}

// BuildPayload copies sel into a Payload, filling default quantities and prices
// for lines without an entry and leaving out entries of unselected keys.
func BuildPayload(sel Selection) (Payload, error) {
	p := Payload{
		SelectedProducts:  make([]domain.OrderLine, 0, len(sel.Lines)),
		ProductQuantities: make(domain.QuantityMap, len(sel.Lines)),
		ProductPrices:     make(domain.PriceMap, len(sel.Lines)),
	}
	for _, l := range sel.Lines {
		key, err := ResolveKey(l)
		if err != nil {
			return Payload{}, err
		}
		if _, dup := p.ProductQuantities[key]; dup {
			return Payload{}, &domain.InvalidLineError{Reason: "duplicate line " + string(key)}
		}
		qty, ok := sel.Quantities[key]
		if !ok {
			qty = 1
		}
		p.SelectedProducts = append(p.SelectedProducts, normalize(l))
		p.ProductQuantities[key] = max(0, qty)
		p.ProductPrices[key] = clampPrice(sel.Prices[key])
	}
	return p, nil
}

// Total of the payload, as the backend computes it.
func (p Payload) Total() decimal.Decimal {
	return Total(p.SelectedProducts, p.ProductQuantities, p.ProductPrices)
}

// Encode builds the order submission body for formID.
func (p Payload) Encode(formID string, formData map[string]any) (SubmitRequest, error) {
	lines, err := json.Marshal(p.SelectedProducts)
	if err != nil {
		return SubmitRequest{}, fmt.Errorf("encode selected products: %w", err)
	}
	qty, err := json.Marshal(p.ProductQuantities)
	if err != nil {
		return SubmitRequest{}, fmt.Errorf("encode quantities: %w", err)
	}
	prices, err := json.Marshal(p.ProductPrices)
	if err != nil {
		return SubmitRequest{}, fmt.Errorf("encode prices: %w", err)
	}
	if formData == nil {
		formData = map[string]any{}
	}
	return SubmitRequest{
		FormID:            formID,
		FormData:          formData,
		SelectedProducts:  string(lines),
		ProductQuantities: string(qty),
		ProductPrices:     string(prices),
	}, nil
}

// DecodeSubmitRequest parses the selection fields of req. Quantities and prices
// are normalized the same way the composer stores them, except that a price too
// large to store is an *domain.InvalidLineError instead of 0.
func DecodeSubmitRequest(req SubmitRequest) (Payload, error) {
	var (
		lines  []domain.OrderLine
		qty    domain.QuantityMap
		prices domain.PriceMap
	)
	if err := decodeField(req.SelectedProducts, &lines); err != nil {
		return Payload{}, fmt.Errorf("selectedProducts: %w", err)
	}
	if err := decodeField(req.ProductQuantities, &qty); err != nil {
		return Payload{}, fmt.Errorf("productQuantities: %w", err)
	}
	if err := decodeField(req.ProductPrices, &prices); err != nil {
		return Payload{}, fmt.Errorf("productPrices: %w", err)
	}
	for _, l := range lines {
		key, err := ResolveKey(l)
		if err != nil {
			continue
		}
		price, ok := prices[key]
		if !ok || price.IsNegative() {
			continue
		}
		if _, ok := domain.NormalizeAmount(price); !ok {
			return Payload{}, &domain.InvalidLineError{Reason: fmt.Sprintf("price of %s exceeds %s", key, domain.MaxAmount)}
		}
	}
	return BuildPayload(Selection{Lines: lines, Quantities: qty, Prices: prices})
}

func decodeField(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}
