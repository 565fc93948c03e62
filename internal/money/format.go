package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const prefix = "Rs. "

// FormatRs renders an amount like "Rs. 1,250" or "Rs. 1,250.50".
// Whole amounts drop the cents; anything else is rounded to two places.
func FormatRs(amount decimal.Decimal) string {
	amount = amount.Round(2)
	neg := amount.IsNegative()
	if neg {
		amount = amount.Neg()
	}

	whole := amount.Truncate(0)
	s := whole.String()
	cents := ""
	if !amount.Equal(whole) {
		cents = amount.StringFixed(2)[len(s):]
	}

	var b strings.Builder
	b.Grow(len(prefix) + len(s) + len(s)/3 + len(cents) + 1)
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(prefix)

	rem := len(s) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(s[:rem])
	for i := rem; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	b.WriteString(cents)
	return b.String()
}
