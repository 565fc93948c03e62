package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVariantRequired = errors.New("product has variants, a variant must be selected")
	ErrLineNotFound    = errors.New("order line not found")
	ErrEmptySelection  = errors.New("no products selected")
	ErrInvalidInput    = errors.New("invalid input")
)

// InvalidLineError reports a line that cannot be identified or does not match
// the catalog.
type InvalidLineError struct {
	Reason string
}

func (e *InvalidLineError) Error() string {
	return "invalid order line: " + e.Reason
}

// CapacityExceededError is returned when a selection would hold more lines
// than allowed.
type CapacityExceededError struct {
	Max int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("at most %d products can be selected", e.Max)
}

// CatalogUnavailableError wraps a failed call to the catalog or order API.
// Status is the HTTP status when the server answered, 0 on transport errors.
type CatalogUnavailableError struct {
	Op     string
	Status int
	Err    error
}

func (e *CatalogUnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error { return e.Err }

func (e *CatalogUnavailableError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsAuthFailure reports whether err is a catalog failure caused by missing or
// rejected credentials. Those are not shown to the user.
func IsAuthFailure(err error) bool {
	var ce *CatalogUnavailableError
	return errors.As(err, &ce) && ce.IsAuth()
}
