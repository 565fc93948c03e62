package composer

import (
	"github.com/shopspring/decimal"

	"github.com/phenrril/orderdesk/internal/domain"
)

// Total sums quantity × unit price over lines. A missing quantity counts as 1
// and a missing price as 0; lines without a product id add nothing.
func Total(lines []domain.OrderLine, quantities domain.QuantityMap, prices domain.PriceMap) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		key, err := ResolveKey(l)
		if err != nil {
			continue
		}
		qty, ok := quantities[key]
		if !ok {
			qty = 1
		}
		total = total.Add(LineTotal(qty, prices[key]))
	}
	return total
}

func LineTotal(qty int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}
