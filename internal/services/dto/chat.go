package dto

import (
	"time"

	"hiresync/internal/models/chat"
)

// ---------------- Requests ----------------

type SendMessageRequest struct {
	ThreadID string `json:"-"`
	SenderID string `json:"-"`
	Body     string `json:"body" validate:"required,max=4000"`
}

// ---------------- Responses ----------------

type ThreadResponse struct {
	ID              string               `json:"id"`
	ProposalID      string               `json:"proposal_id"`
	JobID           string               `json:"job_id"`
	JobTitle        string               `json:"job_title"`
	Role            chat.ParticipantRole `json:"role"`
	CounterpartID   string               `json:"counterpart_id"`
	CounterpartName string               `json:"counterpart_name"`
	LastMessage     string               `json:"last_message"`
	LastMessageAt   *time.Time           `json:"last_message_at,omitempty"`
	LastSenderID    string               `json:"last_sender_id,omitempty"`
	Unread          int                  `json:"unread"`
	CreatedAt       time.Time            `json:"created_at"`
}

type ThreadListResponse struct {
	Threads         []*ThreadResponse `json:"threads"`
	Partial         bool              `json:"partial"`
	InitiatorFailed bool              `json:"initiator_failed,omitempty"`
	RecipientFailed bool              `json:"recipient_failed,omitempty"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"is_read"`
	Mine      bool      `json:"mine"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageBatchResponse struct {
	ThreadID string             `json:"thread_id"`
	Messages []*MessageResponse `json:"messages"`
}

// NewThreadResponse renders t from the point of view of viewerID.
func NewThreadResponse(t *chat.Thread, viewerID string) *ThreadResponse {
	role, _ := t.RoleOf(viewerID)
	counterpart := role.Counterpart()

	name := t.InitiatorName
	if counterpart == chat.RoleRecipient {
		name = t.RecipientName
	}

	return &ThreadResponse{
		ID:              t.ID,
		ProposalID:      t.ProposalID,
		JobID:           t.JobID,
		JobTitle:        t.JobTitle,
		Role:            role,
		CounterpartID:   t.ParticipantID(counterpart),
		CounterpartName: name,
		LastMessage:     t.LastMessage,
		LastMessageAt:   t.LastMessageAt,
		LastSenderID:    t.LastSenderID,
		Unread:          t.UnreadFor(role),
		CreatedAt:       t.CreatedAt,
	}
}

func NewMessageResponse(m *chat.Message, viewerID string) *MessageResponse {
	return &MessageResponse{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		IsRead:    m.IsRead,
		Mine:      m.SenderID == viewerID,
		CreatedAt: m.CreatedAt,
	}
}

// NewMessageBatchResponse рендерит пачку сообщений с точки зрения viewerID.
func NewMessageBatchResponse(threadID string, messages []chat.Message, viewerID string) *MessageBatchResponse {
	resp := &MessageBatchResponse{
		ThreadID: threadID,
		Messages: make([]*MessageResponse, 0, len(messages)),
	}
	for i := range messages {
		resp.Messages = append(resp.Messages, NewMessageResponse(&messages[i], viewerID))
	}
	return resp
}
