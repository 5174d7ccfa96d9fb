package chat

import (
	"cmp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID  string    `gorm:"type:uuid;not null;index:idx_messages_thread_created,priority:1" json:"thread_id"`
	SenderID  string    `gorm:"type:uuid;not null;index" json:"sender_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"index:idx_messages_thread_created,priority:2" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// CompareMessages orders by creation time, then by id for equal timestamps.
func CompareMessages(a, b Message) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
