package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/orderdesk/internal/domain"
)

type FormRepo struct{ db *gorm.DB }

func NewFormRepo(db *gorm.DB) *FormRepo { return &FormRepo{db: db} }

func (r *FormRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	var f domain.Form
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *FormRepo) Save(ctx context.Context, f *domain.Form) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(f).Error
}
