package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/orderdesk/internal/domain"
)

type CustomerRepo struct{ db *gorm.DB }

func NewCustomerRepo(db *gorm.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*domain.Customer, error) {
	p := strings.TrimSpace(phone)
	if p == "" {
		return nil, errors.New("empty phone")
	}
	return r.first(ctx, "tenant_id = ? AND phone = ?", tenantID, p)
}

func (r *CustomerRepo) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.Customer, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return nil, errors.New("empty email")
	}
	return r.first(ctx, "tenant_id = ? AND LOWER(email) = ?", tenantID, e)
}

func (r *CustomerRepo) first(ctx context.Context, query string, args ...any) (*domain.Customer, error) {
	var c domain.Customer
	if err := r.db.WithContext(ctx).Where(query, args...).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) Save(ctx context.Context, c *domain.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Email != "" {
		c.Email = strings.ToLower(c.Email)
	}
	return r.db.WithContext(ctx).Save(c).Error
}
