package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate выдает UUID на стороне приложения, чтобы in-memory хранилище
// и postgres генерировали идентификаторы одинаково.
func (m *BaseModel) BeforeCreate(_ *gorm.DB) error {
	m.EnsureID()
	return nil
}

// EnsureID assigns a fresh id and creation time if they are unset.
func (m *BaseModel) EnsureID() {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
}
