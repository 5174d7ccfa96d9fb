package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	BaseModel
	UserID    string               `gorm:"type:uuid;not null;index" json:"user_id"`
	Category  NotificationCategory `gorm:"type:varchar(32);not null" json:"category"`
	Title     string               `gorm:"not null" json:"title"`
	Body      string               `gorm:"type:text" json:"body"`
	RelatedID string               `gorm:"index" json:"related_id,omitempty"`
	Data      datatypes.JSON       `gorm:"type:jsonb" json:"data,omitempty"` // {"proposal_id": "...", "status": "..."}
	IsRead    bool                 `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
