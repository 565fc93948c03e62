package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/phenrril/orderdesk/internal/money"
)

func TestFormatRs(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "Rs. 0"},
		{"5", "Rs. 5"},
		{"999", "Rs. 999"},
		{"1250", "Rs. 1,250"},
		{"1250.5", "Rs. 1,250.50"},
		{"1250.50", "Rs. 1,250.50"},
		{"0.1", "Rs. 0.10"},
		{"1234567.891", "Rs. 1,234,567.89"},
		{"100000", "Rs. 100,000"},
		{"-300", "-Rs. 300"},
		{"-1500.25", "-Rs. 1,500.25"},
		{"19.999", "Rs. 20"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, money.FormatRs(decimal.RequireFromString(tc.in)))
		})
	}
}
