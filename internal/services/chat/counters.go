package chat

import (
	"context"

	chatmodels "hiresync/internal/models/chat"
	"hiresync/internal/repositories"
	"hiresync/pkg/apperrors"
)

// CounterService maintains the per-role unread counters stored on the thread.
// Every operation is a single relative update; the value never drops below zero.
type CounterService interface {
	Increment(ctx context.Context, threadID string, role chatmodels.ParticipantRole) error
	Decrement(ctx context.Context, threadID string, role chatmodels.ParticipantRole, n int64) error
	Reset(ctx context.Context, threadID string, role chatmodels.ParticipantRole) error
}

type counterService struct {
	chats repositories.ChatRepository
}

func NewCounterService(chats repositories.ChatRepository) CounterService {
	return &counterService{chats: chats}
}

func (s *counterService) Increment(ctx context.Context, threadID string, role chatmodels.ParticipantRole) error {
	if !role.Valid() {
		return apperrors.ErrInvalidOperation(domain, "unknown participant role")
	}
	return handleChatError(s.chats.IncrementUnread(ctx, threadID, role))
}

func (s *counterService) Decrement(ctx context.Context, threadID string, role chatmodels.ParticipantRole, n int64) error {
	if !role.Valid() {
		return apperrors.ErrInvalidOperation(domain, "unknown participant role")
	}
	if n <= 0 {
		return nil
	}
	return handleChatError(s.chats.DecrementUnread(ctx, threadID, role, n))
}

func (s *counterService) Reset(ctx context.Context, threadID string, role chatmodels.ParticipantRole) error {
	if !role.Valid() {
		return apperrors.ErrInvalidOperation(domain, "unknown participant role")
	}
	return handleChatError(s.chats.ResetUnread(ctx, threadID, role))
}
