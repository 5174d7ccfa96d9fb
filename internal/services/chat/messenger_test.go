package chat

import (
	"errors"
	"testing"

	"hiresync/internal/models"
	"hiresync/internal/services/dto"
	"hiresync/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendReq(threadID, senderID, body string) dto.SendMessageRequest {
	return dto.SendMessageRequest{ThreadID: threadID, SenderID: senderID, Body: body}
}

func TestMessenger_Send(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)

	msg, err := f.messenger.Send(f.ctx, sendReq(thread.ID, f.seeker.ID, "  Thanks for the invite!  "))
	require.NoError(t, err)
	assert.Equal(t, "Thanks for the invite!", msg.Body)
	assert.NotEmpty(t, msg.ID)

	updated := f.thread(t, thread.ID)
	assert.Equal(t, "Thanks for the invite!", updated.LastMessage)
	assert.Equal(t, f.seeker.ID, updated.LastSenderID)
	require.NotNil(t, updated.LastMessageAt)
	assert.Equal(t, 1, updated.UnreadInitiator)
	assert.Equal(t, 0, updated.UnreadRecipient)

	reqs := f.notifier.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, f.owner.ID, reqs[0].TargetID)
	assert.Equal(t, models.NotificationCategoryNewMessage, reqs[0].Category)
	assert.Equal(t, thread.ID, reqs[0].RelatedID)
	assert.Contains(t, reqs[0].Body, "Sam Seeker")
}

func TestMessenger_SendRejects(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)

	_, err := f.messenger.Send(f.ctx, sendReq(thread.ID, f.seeker.ID, "   "))
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)

	_, err = f.messenger.Send(f.ctx, sendReq(thread.ID, "stranger", "hi"))
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = f.messenger.Send(f.ctx, sendReq("missing", f.seeker.ID, "hi"))
	assert.ErrorIs(t, err, apperrors.ErrThreadNotFound)
}

func TestMessenger_CounterAndNotifyFailuresKeepMessage(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)
	f.store.FailOn("IncrementUnread", errors.New("counter write lost"))
	f.notifier.err = errors.New("notification store down")

	msg, err := f.messenger.Send(f.ctx, sendReq(thread.ID, f.owner.ID, "hello"))
	require.NoError(t, err)

	messages, err := f.messenger.Messages(f.ctx, thread.ID, f.seeker.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, msg.ID, messages[0].ID)
	assert.Equal(t, 0, f.thread(t, thread.ID).UnreadRecipient)
}
