package composer

import (
	"strings"

	"github.com/phenrril/orderdesk/internal/domain"
)

const keySeparator = "_"

// KeyFor builds the line key for a product and an optional variant id.
func KeyFor(productID, variantID string) domain.LineKey {
	if variantID == "" {
		return domain.LineKey(productID)
	}
	return domain.LineKey(productID + keySeparator + variantID)
}

// VariantOf returns the variant id of a line. ProductVariantID wins over the
// legacy VariantID field.
func VariantOf(line domain.OrderLine) string {
	if v := strings.TrimSpace(line.ProductVariantID); v != "" {
		return v
	}
	return strings.TrimSpace(line.VariantID)
}

// ResolveKey returns the identity of line.
func ResolveKey(line domain.OrderLine) (domain.LineKey, error) {
	pid := strings.TrimSpace(line.ProductID)
	if pid == "" {
		return "", &domain.InvalidLineError{Reason: "missing product id"}
	}
	return KeyFor(pid, VariantOf(line)), nil
}
