package composer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/orderdesk/internal/composer"
	"github.com/phenrril/orderdesk/internal/domain"
)

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name string
		line domain.OrderLine
		want domain.LineKey
	}{
		{"no variant", domain.OrderLine{ProductID: "P1"}, "P1"},
		{"variant", domain.OrderLine{ProductID: "P1", ProductVariantID: "V1"}, "P1_V1"},
		{"legacy variant field", domain.OrderLine{ProductID: "P1", VariantID: "V1"}, "P1_V1"},
		{"productVariantId wins", domain.OrderLine{ProductID: "P1", ProductVariantID: "V2", VariantID: "V1"}, "P1_V2"},
		{"blank variant ignored", domain.OrderLine{ProductID: " P1 ", ProductVariantID: "  "}, "P1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := composer.ResolveKey(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveKey_Stable(t *testing.T) {
	a := domain.OrderLine{ProductID: "P1", ProductVariantID: "V1", Name: "Shirt"}
	b := domain.OrderLine{ProductID: "P1", VariantID: "V1", Color: "red"}

	ka1, _ := composer.ResolveKey(a)
	ka2, _ := composer.ResolveKey(a)
	kb, _ := composer.ResolveKey(b)
	assert.Equal(t, ka1, ka2)
	assert.Equal(t, ka1, kb)

	plain, _ := composer.ResolveKey(domain.OrderLine{ProductID: "P1"})
	other, _ := composer.ResolveKey(domain.OrderLine{ProductID: "P1", ProductVariantID: "V2"})
	assert.NotEqual(t, ka1, plain)
	assert.NotEqual(t, ka1, other)
}

func TestResolveKey_MissingProduct(t *testing.T) {
	_, err := composer.ResolveKey(domain.OrderLine{ProductVariantID: "V1"})
	var lineErr *domain.InvalidLineError
	require.ErrorAs(t, err, &lineErr)
	assert.Contains(t, err.Error(), "missing product id")
}
