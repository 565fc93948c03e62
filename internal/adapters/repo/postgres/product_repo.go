package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/orderdesk/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func orderVariants(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }

func (r *ProductRepo) Search(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var list []domain.Product
	q := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("tenant_id = ? AND active = ?", f.TenantID, true)
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(category) LIKE ? OR id IN (?))",
			like, like,
			r.db.Model(&domain.Variant{}).Select("product_id").Where("LOWER(sku) LIKE ?", like))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Order("name asc").Preload("Variants", orderVariants).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Preload("Variants", orderVariants).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByIDs returns the tenant's products among ids. Missing ids are simply
// absent from the result.
func (r *ProductRepo) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []domain.Product
	if err := r.db.WithContext(ctx).Preload("Variants", orderVariants).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*domain.Product, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return nil, domain.ErrNotFound
	}
	var p domain.Product
	if err := r.db.WithContext(ctx).Preload("Variants", orderVariants).
		First(&p, "tenant_id = ? AND LOWER(name) = ?", tenantID, n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListVariants returns the variants of a product, oldest first. An unknown
// product is domain.ErrNotFound.
func (r *ProductRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	db := r.db.WithContext(ctx)
	var list []domain.Variant
	if err := db.Where("product_id = ?", productID).Order("created_at asc").Find(&list).Error; err != nil {
		return nil, err
	}
	if len(list) > 0 {
		return list, nil
	}
	var n int64
	if err := db.Model(&domain.Product{}).Where("id = ?", productID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	return list, nil
}

// SaveWithVariants upserts p and replaces its variant set: variants of p that
// are not in p.Variants are deleted.
func (r *ProductRepo) SaveWithVariants(ctx context.Context, p *domain.Product) error {
	if p.HasVariants && len(p.Variants) == 0 {
		return errors.New("product with variants needs at least one variant")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	keep := make([]uuid.UUID, 0, len(p.Variants))
	for i := range p.Variants {
		if p.Variants[i].ID == uuid.Nil {
			p.Variants[i].ID = uuid.New()
		}
		p.Variants[i].ProductID = p.ID
		keep = append(keep, p.Variants[i].ID)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Variants").Save(p).Error; err != nil {
			return err
		}
		del := tx.Where("product_id = ?", p.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&domain.Variant{}).Error; err != nil {
			return err
		}
		for i := range p.Variants {
			if err := tx.Save(&p.Variants[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProductRepo) UpdateLastSalePrice(ctx context.Context, productID uuid.UUID, price decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", productID).
		Update("last_sale_price", price).Error
}
