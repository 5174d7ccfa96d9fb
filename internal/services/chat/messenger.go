package chat

import (
	"context"
	"strings"

	"hiresync/internal/logger"
	"hiresync/internal/models"
	chatmodels "hiresync/internal/models/chat"
	"hiresync/internal/repositories"
	"hiresync/internal/services/dto"
	"hiresync/pkg/apperrors"
)

// Notifier is the part of the notification fanout the chat needs.
type Notifier interface {
	Notify(ctx context.Context, req dto.NotifyRequest) (*models.Notification, error)
}

// Messenger is the sender side of a thread.
type Messenger interface {
	Send(ctx context.Context, req dto.SendMessageRequest) (*chatmodels.Message, error)
	Thread(ctx context.Context, threadID, viewerID string) (*chatmodels.Thread, error)
	Messages(ctx context.Context, threadID, viewerID string) ([]chatmodels.Message, error)
}

type messenger struct {
	chats    repositories.ChatRepository
	counters CounterService
	notifier Notifier
}

func NewMessenger(chats repositories.ChatRepository, counters CounterService, notifier Notifier) Messenger {
	return &messenger{chats: chats, counters: counters, notifier: notifier}
}

// Send stores the message, then bumps the counterpart's unread counter and
// notifies them. The last two are independent of the message write: if they
// fail the message stays and the counter under-counts until the next open.
func (m *messenger) Send(ctx context.Context, req dto.SendMessageRequest) (*chatmodels.Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	thread, err := m.Thread(ctx, req.ThreadID, req.SenderID)
	if err != nil {
		return nil, err
	}
	role, _ := thread.RoleOf(req.SenderID)
	counterpart := role.Counterpart()

	message := &chatmodels.Message{
		ThreadID: thread.ID,
		SenderID: req.SenderID,
		Body:     body,
	}
	if err := m.chats.CreateMessage(ctx, message); err != nil {
		return nil, handleChatError(err)
	}

	if err := m.counters.Increment(ctx, thread.ID, counterpart); err != nil {
		logger.CtxWarn(ctx, "unread counter not incremented", "thread_id", thread.ID, "role", counterpart, "error", err)
	}

	if m.notifier != nil {
		senderName := thread.InitiatorName
		if role == chatmodels.RoleRecipient {
			senderName = thread.RecipientName
		}
		_, err := m.notifier.Notify(ctx, dto.NotifyRequest{
			TargetID:  thread.ParticipantID(counterpart),
			Title:     "New message",
			Body:      newMessageBody(senderName, thread.JobTitle),
			Category:  models.NotificationCategoryNewMessage,
			RelatedID: thread.ID,
			Data: &dto.NotificationData{
				ThreadID:   thread.ID,
				ProposalID: thread.ProposalID,
				SenderID:   req.SenderID,
			},
		})
		if err != nil {
			logger.CtxWarn(ctx, "new message notification failed", "thread_id", thread.ID, "error", err)
		}
	}

	return message, nil
}

// Thread returns the thread if viewerID takes part in it.
func (m *messenger) Thread(ctx context.Context, threadID, viewerID string) (*chatmodels.Thread, error) {
	thread, err := m.chats.FindThreadByID(ctx, threadID)
	if err != nil {
		return nil, handleChatError(err)
	}
	if _, ok := thread.RoleOf(viewerID); !ok {
		return nil, apperrors.ErrNotParticipant
	}
	return thread, nil
}

// Messages is a one-shot read of the ordered thread history.
func (m *messenger) Messages(ctx context.Context, threadID, viewerID string) ([]chatmodels.Message, error) {
	if _, err := m.Thread(ctx, threadID, viewerID); err != nil {
		return nil, err
	}
	messages, err := m.chats.FindMessagesByThread(ctx, threadID)
	if err != nil {
		return nil, handleChatError(err)
	}
	return messages, nil
}

func newMessageBody(senderName, jobTitle string) string {
	if senderName == "" {
		senderName = "Your contact"
	}
	if jobTitle == "" {
		return senderName + " sent you a message"
	}
	return senderName + " sent you a message about \"" + jobTitle + "\""
}
