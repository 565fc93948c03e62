package domain

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;index" json:"tenantId"`
	Name      string    `gorm:"size:140" json:"name"`
	Phone     string    `gorm:"size:60;index" json:"phone,omitempty"`
	Email     string    `gorm:"size:140;index" json:"email,omitempty"`
	Address   string    `gorm:"size:255" json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}
