package domain

import "github.com/shopspring/decimal"

// Prices travel as JSON numbers on every contract.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// maxAmountDigits is the integer part of a decimal(12,2) column.
const maxAmountDigits = 10

// MaxAmount is the largest amount a stored price or total can hold.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// NormalizeAmount rounds d to cents. ok is false when d is negative or larger
// than MaxAmount. The magnitude is judged from the coefficient length and the
// exponent, so inputs like 1e5000000 are rejected without being expanded.
func NormalizeAmount(d decimal.Decimal) (decimal.Decimal, bool) {
	switch d.Sign() {
	case -1:
		return decimal.Zero, false
	case 0:
		return decimal.Zero, true
	}
	// d < 10^magnitude
	magnitude := len(d.Coefficient().String()) + int(d.Exponent())
	switch {
	case magnitude > maxAmountDigits:
		return decimal.Zero, false
	case magnitude < -2:
		return decimal.Zero, true
	}
	r := d.Round(2)
	if r.GreaterThan(MaxAmount) {
		return decimal.Zero, false
	}
	return r, true
}
