package memory

import (
	"context"
	"slices"
	"time"

	"hiresync/internal/changefeed"
	"hiresync/internal/models/chat"
	"hiresync/internal/repositories"

	"github.com/google/uuid"
)

type chatRepository struct {
	s *Store
}

func (r *chatRepository) CreateThread(ctx context.Context, thread *chat.Thread) error {
	if err := r.s.fault("CreateThread"); err != nil {
		return err
	}

	r.s.mu.Lock()
	if _, exists := r.s.threadByProposal[thread.ProposalID]; exists {
		r.s.mu.Unlock()
		return repositories.ErrDuplicateThread
	}
	if thread.ID == "" {
		thread.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now
	r.s.threads[thread.ID] = *thread
	r.s.threadByProposal[thread.ProposalID] = thread.ID
	r.s.mu.Unlock()

	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicThreads, thread.ID, thread.ID, changefeed.OpInsert))
	return nil
}

func (r *chatRepository) FindThreadByID(_ context.Context, id string) (*chat.Thread, error) {
	if err := r.s.fault("FindThreadByID"); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	thread, ok := r.s.threads[id]
	if !ok {
		return nil, repositories.ErrThreadNotFound
	}
	return &thread, nil
}

func (r *chatRepository) FindThreadByProposal(_ context.Context, proposalID string) (*chat.Thread, error) {
	if err := r.s.fault("FindThreadByProposal"); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.threadByProposal[proposalID]
	if !ok {
		return nil, repositories.ErrThreadNotFound
	}
	thread := r.s.threads[id]
	return &thread, nil
}

func (r *chatRepository) FindThreadsByInitiator(_ context.Context, actorID string) ([]chat.Thread, error) {
	if err := r.s.fault("FindThreadsByInitiator"); err != nil {
		return nil, err
	}
	return r.filterThreads(func(t chat.Thread) bool { return t.InitiatorID == actorID }), nil
}

func (r *chatRepository) FindThreadsByRecipient(_ context.Context, actorID string) ([]chat.Thread, error) {
	if err := r.s.fault("FindThreadsByRecipient"); err != nil {
		return nil, err
	}
	return r.filterThreads(func(t chat.Thread) bool { return t.RecipientID == actorID }), nil
}

func (r *chatRepository) filterThreads(keep func(chat.Thread) bool) []chat.Thread {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []chat.Thread
	for _, t := range r.s.threads {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *chat.Message) error {
	if err := r.s.fault("CreateMessage"); err != nil {
		return err
	}

	r.s.mu.Lock()
	thread, ok := r.s.threads[message.ThreadID]
	if !ok {
		r.s.mu.Unlock()
		return repositories.ErrThreadNotFound
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	r.s.messages[message.ThreadID] = append(r.s.messages[message.ThreadID], *message)

	at := message.CreatedAt
	thread.LastMessage = message.Body
	thread.LastMessageAt = &at
	thread.LastSenderID = message.SenderID
	thread.UpdatedAt = time.Now().UTC()
	r.s.threads[thread.ID] = thread
	r.s.mu.Unlock()

	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicMessages, message.ThreadID, message.ID, changefeed.OpInsert))
	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicThreads, message.ThreadID, message.ThreadID, changefeed.OpUpdate))
	return nil
}

func (r *chatRepository) FindMessagesByThread(_ context.Context, threadID string) ([]chat.Message, error) {
	if err := r.s.fault("FindMessagesByThread"); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	out := slices.Clone(r.s.messages[threadID])
	r.s.mu.RUnlock()

	slices.SortFunc(out, chat.CompareMessages)
	return out, nil
}

func (r *chatRepository) MarkMessagesRead(ctx context.Context, threadID string, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	if err := r.s.fault("MarkMessagesRead"); err != nil {
		return 0, err
	}

	wanted := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = struct{}{}
	}

	var n int64
	r.s.mu.Lock()
	msgs := r.s.messages[threadID]
	for i := range msgs {
		if _, ok := wanted[msgs[i].ID]; ok && !msgs[i].IsRead {
			msgs[i].IsRead = true
			n++
		}
	}
	r.s.mu.Unlock()

	if n > 0 {
		r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicMessages, threadID, "", changefeed.OpUpdate))
	}
	return n, nil
}

func (r *chatRepository) IncrementUnread(ctx context.Context, threadID string, role chat.ParticipantRole) error {
	if err := r.s.fault("IncrementUnread"); err != nil {
		return err
	}
	return r.updateCounter(ctx, threadID, role, func(v int) int { return v + 1 })
}

func (r *chatRepository) DecrementUnread(ctx context.Context, threadID string, role chat.ParticipantRole, n int64) error {
	if n <= 0 {
		return nil
	}
	if err := r.s.fault("DecrementUnread"); err != nil {
		return err
	}
	return r.updateCounter(ctx, threadID, role, func(v int) int { return max(v-int(n), 0) })
}

func (r *chatRepository) ResetUnread(ctx context.Context, threadID string, role chat.ParticipantRole) error {
	if err := r.s.fault("ResetUnread"); err != nil {
		return err
	}
	return r.updateCounter(ctx, threadID, role, func(int) int { return 0 })
}

func (r *chatRepository) updateCounter(ctx context.Context, threadID string, role chat.ParticipantRole, apply func(int) int) error {
	r.s.mu.Lock()
	thread, ok := r.s.threads[threadID]
	if !ok {
		r.s.mu.Unlock()
		return repositories.ErrThreadNotFound
	}
	if role == chat.RoleInitiator {
		thread.UnreadInitiator = apply(thread.UnreadInitiator)
	} else {
		thread.UnreadRecipient = apply(thread.UnreadRecipient)
	}
	r.s.threads[threadID] = thread
	r.s.mu.Unlock()

	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicThreads, threadID, threadID, changefeed.OpUpdate))
	return nil
}
