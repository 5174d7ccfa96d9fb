package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ParticipantRole - роль участника в чате.
type ParticipantRole string

const (
	// RoleInitiator - владелец вакансии, открывший чат.
	RoleInitiator ParticipantRole = "initiator"
	// RoleRecipient - соискатель.
	RoleRecipient ParticipantRole = "recipient"
)

// Thread - чат между владельцем вакансии и соискателем по одному отклику.
type Thread struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	ProposalID    string     `gorm:"type:uuid;not null;uniqueIndex" json:"proposal_id"`
	JobID         string     `gorm:"type:uuid;index" json:"job_id"`
	JobTitle      string     `json:"job_title"`
	InitiatorID   string     `gorm:"type:uuid;not null;index" json:"initiator_id"`
	InitiatorName string     `json:"initiator_name"`
	RecipientID   string     `gorm:"type:uuid;not null;index" json:"recipient_id"`
	RecipientName string     `json:"recipient_name"`
	LastMessage   string     `gorm:"type:text" json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	LastSenderID  string     `json:"last_sender_id,omitempty"`

	UnreadInitiator int `gorm:"not null;default:0" json:"unread_initiator"`
	UnreadRecipient int `gorm:"not null;default:0" json:"unread_recipient"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Thread) TableName() string {
	return "chats"
}

func (t *Thread) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// RoleOf возвращает роль actorID в чате.
func (t *Thread) RoleOf(actorID string) (ParticipantRole, bool) {
	switch actorID {
	case t.InitiatorID:
		return RoleInitiator, true
	case t.RecipientID:
		return RoleRecipient, true
	}
	return "", false
}

// ParticipantID returns the actor holding role.
func (t *Thread) ParticipantID(role ParticipantRole) string {
	if role == RoleInitiator {
		return t.InitiatorID
	}
	return t.RecipientID
}

// UnreadFor returns the denormalized counter of role.
func (t *Thread) UnreadFor(role ParticipantRole) int {
	if role == RoleInitiator {
		return t.UnreadInitiator
	}
	return t.UnreadRecipient
}

// Counterpart returns the other role.
func (r ParticipantRole) Counterpart() ParticipantRole {
	if r == RoleInitiator {
		return RoleRecipient
	}
	return RoleInitiator
}

// CounterColumn is the chats column holding role's unread counter.
func (r ParticipantRole) CounterColumn() string {
	if r == RoleInitiator {
		return "unread_initiator"
	}
	return "unread_recipient"
}

// Valid reports whether r is one of the two participant roles.
func (r ParticipantRole) Valid() bool {
	return r == RoleInitiator || r == RoleRecipient
}

// SortKey is the time a thread list is ordered by: last message, else creation.
func (t *Thread) SortKey() (time.Time, bool) {
	if t.LastMessageAt != nil {
		return *t.LastMessageAt, true
	}
	return t.CreatedAt, false
}
