package dto

import (
	"time"

	"hiresync/internal/models"
)

// NotifyRequest - одно уведомление одному получателю.
type NotifyRequest struct {
	TargetID  string                      `json:"target_id" validate:"required"`
	Title     string                      `json:"title" validate:"required,max=200"`
	Body      string                      `json:"body" validate:"max=2000"`
	Category  models.NotificationCategory `json:"category" validate:"required,is-notification-category"`
	RelatedID string                      `json:"related_id,omitempty"`
	Data      *NotificationData           `json:"data,omitempty"`
}

// NotificationData is the schema of Notification.Data. Stored payloads are
// decoded strictly against it; a payload that fails is reported, not defaulted.
type NotificationData struct {
	ProposalID     string `json:"proposal_id,omitempty"`
	JobID          string `json:"job_id,omitempty"`
	ThreadID       string `json:"thread_id,omitempty"`
	SenderID       string `json:"sender_id,omitempty"`
	Status         string `json:"status,omitempty" validate:"omitempty,is-proposal-status"`
	PreviousStatus string `json:"previous_status,omitempty" validate:"omitempty,is-proposal-status"`
}

// ---------------- Responses ----------------

type NotificationResponse struct {
	ID        string                      `json:"id"`
	UserID    string                      `json:"user_id"`
	Category  models.NotificationCategory `json:"category"`
	Title     string                      `json:"title"`
	Body      string                      `json:"body"`
	RelatedID string                      `json:"related_id,omitempty"`
	Data      *NotificationData           `json:"data,omitempty"`
	IsRead    bool                        `json:"is_read"`
	ReadAt    *time.Time                  `json:"read_at,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int64                   `json:"total"`
	Unread        int64                   `json:"unread"`
}

type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}
