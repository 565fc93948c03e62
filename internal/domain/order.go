package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// LineKey identifies an order line: "<productId>" or "<productId>_<variantId>".
type LineKey string

// OrderLine is one product (and optional variant) in an order being composed.
// Name, Color and Size are copied at selection time. Quantity and Price are only
// set on lines restored from an already submitted order.
type OrderLine struct {
	ProductID        string           `json:"productId"`
	ProductVariantID string           `json:"productVariantId,omitempty"`
	VariantID        string           `json:"variantId,omitempty"`
	Name             string           `json:"name"`
	Color            string           `json:"color,omitempty"`
	Size             string           `json:"size,omitempty"`
	Quantity         int              `json:"quantity,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
}

type QuantityMap map[LineKey]int

type PriceMap map[LineKey]decimal.Decimal

type Order struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID         `gorm:"type:uuid;index" json:"tenantId"`
	FormID     uuid.UUID         `gorm:"type:uuid;index" json:"formId"`
	CustomerID *uuid.UUID        `gorm:"type:uuid;index" json:"customerId"`
	Status     OrderStatus       `gorm:"type:varchar(30);index" json:"status"`
	FormData   map[string]string `gorm:"type:jsonb;serializer:json" json:"formData"`
	Items      []OrderItem       `json:"items"`
	Total      decimal.Decimal   `gorm:"type:decimal(12,2);default:0" json:"total"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index" json:"orderId"`
	ProductID uuid.UUID       `gorm:"type:uuid;index" json:"productId"`
	VariantID *uuid.UUID      `gorm:"type:uuid;index" json:"variantId,omitempty"`
	LineKey   LineKey         `gorm:"size:80" json:"lineKey"`
	Name      string          `gorm:"size:180" json:"name"`
	Color     string          `gorm:"size:60" json:"color,omitempty"`
	Size      string          `gorm:"size:40" json:"size,omitempty"`
	SKU       string          `gorm:"size:100" json:"sku,omitempty"`
	Qty       int             `gorm:"not null" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"unitPrice"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
}

// Form is the intake form an order is submitted through. Only the fields the
// order workflow reads are modelled here.
type Form struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;index" json:"tenantId"`
	Name        string    `gorm:"size:140" json:"name"`
	MaxProducts int       `gorm:"not null;default:20" json:"maxProducts"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Lines turns the stored items back into order lines carrying their quantity
// and unit price, ready to seed a composer for editing.
func (o Order) Lines() []OrderLine {
	lines := make([]OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		l := OrderLine{
			ProductID: it.ProductID.String(),
			Name:      it.Name,
			Color:     it.Color,
			Size:      it.Size,
			Quantity:  it.Qty,
		}
		if it.VariantID != nil {
			l.ProductVariantID = it.VariantID.String()
		}
		price := it.UnitPrice
		l.Price = &price
		lines = append(lines, l)
	}
	return lines
}
