package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID        `gorm:"type:uuid;index" json:"tenantId"`
	Name          string           `gorm:"size:180;not null" json:"name"`
	Category      string           `gorm:"size:100;index" json:"category"`
	BasePrice     decimal.Decimal  `gorm:"type:decimal(12,2);default:0" json:"basePrice"`
	LastSalePrice *decimal.Decimal `gorm:"type:decimal(12,2)" json:"lastSalePrice,omitempty"`
	Description   string           `gorm:"type:text" json:"description,omitempty"`
	HasVariants   bool             `gorm:"not null;default:false" json:"hasVariants"`
	Active        bool             `gorm:"default:true;index" json:"-"`
	Variants      []Variant        `json:"variants,omitempty"`
	CreatedAt     time.Time        `json:"-"`
	UpdatedAt     time.Time        `json:"-"`
}

// SalePrice is the default unit price for a new order line: last sale price,
// then base price, never negative.
func (p Product) SalePrice() decimal.Decimal {
	if p.LastSalePrice != nil && p.LastSalePrice.IsPositive() {
		return *p.LastSalePrice
	}
	if p.BasePrice.IsPositive() {
		return p.BasePrice
	}
	return decimal.Zero
}

func (p Product) FindVariant(id uuid.UUID) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

type Variant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"productId"`
	Color     string    `gorm:"size:60" json:"color,omitempty"`
	Size      string    `gorm:"size:40" json:"size,omitempty"`
	SKU       string    `gorm:"size:100;index" json:"sku,omitempty"`
	Stock     *int      `gorm:"type:int" json:"stock,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Label is the human readable "color / size" pair used in variant prompts.
func (v Variant) Label() string {
	switch {
	case v.Color != "" && v.Size != "":
		return v.Color + " / " + v.Size
	case v.Color != "":
		return v.Color
	case v.Size != "":
		return v.Size
	case v.SKU != "":
		return v.SKU
	}
	return v.ID.String()
}

type ProductFilter struct {
	TenantID uuid.UUID
	Query    string
	Limit    int
}
