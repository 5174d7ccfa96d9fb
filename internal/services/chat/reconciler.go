package chat

import (
	"context"

	chatmodels "hiresync/internal/models/chat"
	"hiresync/internal/repositories"
	"hiresync/pkg/apperrors"
)

// Reconciler marks messages seen by the viewer as read.
type Reconciler interface {
	// Reconcile marks the still-unread messages in unread as read with one
	// batched update and lowers the viewer's counter by the number actually
	// flipped. Nothing is flipped locally: after a failure the same set is
	// simply offered again with the next batch.
	Reconcile(ctx context.Context, threadID, viewerID string, unread []chatmodels.Message) (int64, error)
}

type reconciler struct {
	chats    repositories.ChatRepository
	counters CounterService
}

func NewReconciler(chats repositories.ChatRepository, counters CounterService) Reconciler {
	return &reconciler{chats: chats, counters: counters}
}

func (r *reconciler) Reconcile(ctx context.Context, threadID, viewerID string, unread []chatmodels.Message) (int64, error) {
	ids := make([]string, 0, len(unread))
	for _, m := range unread {
		if m.ThreadID == threadID && m.SenderID != viewerID && !m.IsRead {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	thread, err := r.chats.FindThreadByID(ctx, threadID)
	if err != nil {
		return 0, handleChatError(err)
	}
	role, ok := thread.RoleOf(viewerID)
	if !ok {
		return 0, apperrors.ErrNotParticipant
	}

	n, err := r.chats.MarkMessagesRead(ctx, threadID, ids)
	if err != nil {
		return 0, apperrors.DependencyError(err, domain)
	}
	// флаги уже записаны: декремент не должен зависеть от отмены подписки
	if err := r.counters.Decrement(context.WithoutCancel(ctx), threadID, role, n); err != nil {
		return n, err
	}
	return n, nil
}

// UnreadFrom returns the messages viewerID has not read yet, keeping order.
func UnreadFrom(messages []chatmodels.Message, viewerID string) []chatmodels.Message {
	var out []chatmodels.Message
	for _, m := range messages {
		if !m.IsRead && m.SenderID != viewerID {
			out = append(out, m)
		}
	}
	return out
}
