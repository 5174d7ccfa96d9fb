package repositories

import (
	"context"
	"errors"
	"time"

	"hiresync/internal/changefeed"
	"hiresync/internal/models/chat"

	"gorm.io/gorm"
)

type ChatRepository interface {
	// Thread operations
	CreateThread(ctx context.Context, thread *chat.Thread) error
	FindThreadByID(ctx context.Context, id string) (*chat.Thread, error)
	FindThreadByProposal(ctx context.Context, proposalID string) (*chat.Thread, error)
	FindThreadsByInitiator(ctx context.Context, actorID string) ([]chat.Thread, error)
	FindThreadsByRecipient(ctx context.Context, actorID string) ([]chat.Thread, error)

	// Message operations
	CreateMessage(ctx context.Context, message *chat.Message) error
	FindMessagesByThread(ctx context.Context, threadID string) ([]chat.Message, error)
	MarkMessagesRead(ctx context.Context, threadID string, messageIDs []string) (int64, error)

	// Counter operations
	IncrementUnread(ctx context.Context, threadID string, role chat.ParticipantRole) error
	DecrementUnread(ctx context.Context, threadID string, role chat.ParticipantRole, n int64) error
	ResetUnread(ctx context.Context, threadID string, role chat.ParticipantRole) error
}

type ChatRepositoryImpl struct {
	db   *gorm.DB
	feed changefeed.Publisher
}

func NewChatRepository(db *gorm.DB, feed changefeed.Publisher) ChatRepository {
	return &ChatRepositoryImpl{db: db, feed: feed}
}

// --- Threads ---

// CreateThread relies on the unique index on proposal_id; a lost race is
// reported as ErrDuplicateThread.
func (r *ChatRepositoryImpl) CreateThread(ctx context.Context, thread *chat.Thread) error {
	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateThread
		}
		return err
	}
	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicThreads, thread.ID, thread.ID, changefeed.OpInsert))
	return nil
}

func (r *ChatRepositoryImpl) FindThreadByID(ctx context.Context, id string) (*chat.Thread, error) {
	var thread chat.Thread
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&thread).Error; err != nil {
		return nil, notFound(err, ErrThreadNotFound)
	}
	return &thread, nil
}

func (r *ChatRepositoryImpl) FindThreadByProposal(ctx context.Context, proposalID string) (*chat.Thread, error) {
	var thread chat.Thread
	if err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).First(&thread).Error; err != nil {
		return nil, notFound(err, ErrThreadNotFound)
	}
	return &thread, nil
}

func (r *ChatRepositoryImpl) FindThreadsByInitiator(ctx context.Context, actorID string) ([]chat.Thread, error) {
	return r.findThreads(ctx, "initiator_id = ?", actorID)
}

func (r *ChatRepositoryImpl) FindThreadsByRecipient(ctx context.Context, actorID string) ([]chat.Thread, error) {
	return r.findThreads(ctx, "recipient_id = ?", actorID)
}

func (r *ChatRepositoryImpl) findThreads(ctx context.Context, where string, actorID string) ([]chat.Thread, error) {
	var threads []chat.Thread
	err := r.db.WithContext(ctx).
		Where(where, actorID).
		Order("last_message_at DESC NULLS LAST").
		Order("created_at DESC").
		Find(&threads).Error
	return threads, err
}

// --- Messages ---

// CreateMessage stores the message and refreshes the thread's last-message
// fields in one transaction. Unread counters are not touched here.
func (r *ChatRepositoryImpl) CreateMessage(ctx context.Context, message *chat.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		res := tx.Model(&chat.Thread{}).
			Where("id = ?", message.ThreadID).
			Updates(map[string]interface{}{
				"last_message":    message.Body,
				"last_message_at": message.CreatedAt,
				"last_sender_id":  message.SenderID,
				"updated_at":      time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrThreadNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicMessages, message.ThreadID, message.ID, changefeed.OpInsert))
	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicThreads, message.ThreadID, message.ThreadID, changefeed.OpUpdate))
	return nil
}

func (r *ChatRepositoryImpl) FindMessagesByThread(ctx context.Context, threadID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// MarkMessagesRead flips the read flag of the given messages in one statement.
// Messages already read are not counted.
func (r *ChatRepositoryImpl) MarkMessagesRead(ctx context.Context, threadID string, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("thread_id = ? AND id IN ? AND is_read = ?", threadID, messageIDs, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicMessages, threadID, "", changefeed.OpUpdate))
	}
	return res.RowsAffected, nil
}

// --- Counters ---

func (r *ChatRepositoryImpl) IncrementUnread(ctx context.Context, threadID string, role chat.ParticipantRole) error {
	col := role.CounterColumn()
	return r.updateCounter(ctx, threadID, col, gorm.Expr(col+" + 1"))
}

func (r *ChatRepositoryImpl) DecrementUnread(ctx context.Context, threadID string, role chat.ParticipantRole, n int64) error {
	if n <= 0 {
		return nil
	}
	col := role.CounterColumn()
	return r.updateCounter(ctx, threadID, col, gorm.Expr("GREATEST("+col+" - ?, 0)", n))
}

func (r *ChatRepositoryImpl) ResetUnread(ctx context.Context, threadID string, role chat.ParticipantRole) error {
	return r.updateCounter(ctx, threadID, role.CounterColumn(), 0)
}

func (r *ChatRepositoryImpl) updateCounter(ctx context.Context, threadID, col string, value interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Thread{}).
		Where("id = ?", threadID).
		UpdateColumn(col, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrThreadNotFound
	}
	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicThreads, threadID, threadID, changefeed.OpUpdate))
	return nil
}
