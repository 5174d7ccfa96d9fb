package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	chatmodels "hiresync/internal/models/chat"
	"hiresync/internal/repositories"
	"hiresync/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_MarksAllReadAndDecrements(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		f.send(t, thread, f.seeker.ID, "hello", base.Add(time.Duration(i)*time.Second))
	}
	require.Equal(t, 3, f.thread(t, thread.ID).UnreadInitiator)

	messages, err := f.store.Chats().FindMessagesByThread(f.ctx, thread.ID)
	require.NoError(t, err)

	n, err := f.reconciler.Reconcile(f.ctx, thread.ID, f.owner.ID, UnreadFrom(messages, f.owner.ID))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	after, err := f.store.Chats().FindMessagesByThread(f.ctx, thread.ID)
	require.NoError(t, err)
	for _, m := range after {
		assert.True(t, m.IsRead)
	}
	assert.Equal(t, 0, f.thread(t, thread.ID).UnreadInitiator)
}

func TestReconcile_CountsOnlyActualTransitions(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)
	base := time.Now().UTC()

	a := f.send(t, thread, f.seeker.ID, "a", base)
	b := f.send(t, thread, f.seeker.ID, "b", base.Add(time.Second))
	stale := []chatmodels.Message{*a, *b}

	n, err := f.reconciler.Reconcile(f.ctx, thread.ID, f.owner.ID, stale[:1])
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// a is already read in the store; only b transitions
	n, err = f.reconciler.Reconcile(f.ctx, thread.ID, f.owner.ID, stale)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 0, f.thread(t, thread.ID).UnreadInitiator)
}

func TestReconcile_EmptyAndOwnMessagesAreNoop(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)
	own := f.send(t, thread, f.owner.ID, "mine", time.Now().UTC())

	f.store.FailOn("MarkMessagesRead", errors.New("must not be called"))

	n, err := f.reconciler.Reconcile(f.ctx, thread.ID, f.owner.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.reconciler.Reconcile(f.ctx, thread.ID, f.owner.ID, []chatmodels.Message{*own})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcile_FailureLeavesMessagesForRetry(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)
	m := f.send(t, thread, f.seeker.ID, "hi", time.Now().UTC())

	f.store.FailOn("MarkMessagesRead", errors.New("write timeout"))
	_, err := f.reconciler.Reconcile(f.ctx, thread.ID, f.owner.ID, []chatmodels.Message{*m})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependencyError))
	assert.Equal(t, 1, f.thread(t, thread.ID).UnreadInitiator)

	f.store.Heal("MarkMessagesRead")
	n, err := f.reconciler.Reconcile(f.ctx, thread.ID, f.owner.ID, []chatmodels.Message{*m})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 0, f.thread(t, thread.ID).UnreadInitiator)
}

func TestReconcile_RejectsOutsider(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)
	m := f.send(t, thread, f.seeker.ID, "hi", time.Now().UTC())

	_, err := f.reconciler.Reconcile(f.ctx, thread.ID, "stranger", []chatmodels.Message{*m})
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

// cancelAfterMarkRepo отменяет контекст сразу после записи флагов, как
// Cancel подписки в этот момент. Счетчики, как и gorm, отказывают по
// отмененному контексту.
type cancelAfterMarkRepo struct {
	repositories.ChatRepository
	cancel context.CancelFunc
}

func (r *cancelAfterMarkRepo) MarkMessagesRead(ctx context.Context, threadID string, ids []string) (int64, error) {
	n, err := r.ChatRepository.MarkMessagesRead(ctx, threadID, ids)
	r.cancel()
	return n, err
}

func (r *cancelAfterMarkRepo) DecrementUnread(ctx context.Context, threadID string, role chatmodels.ParticipantRole, n int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.ChatRepository.DecrementUnread(ctx, threadID, role, n)
}

func TestReconcile_DecrementSurvivesCancelAfterMark(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)
	f.send(t, thread, f.seeker.ID, "one", time.Now().UTC())
	f.send(t, thread, f.seeker.ID, "two", time.Now().UTC().Add(time.Second))

	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()
	repo := &cancelAfterMarkRepo{ChatRepository: f.store.Chats(), cancel: cancel}
	reconciler := NewReconciler(repo, NewCounterService(repo))

	messages, err := f.store.Chats().FindMessagesByThread(f.ctx, thread.ID)
	require.NoError(t, err)

	n, err := reconciler.Reconcile(ctx, thread.ID, f.owner.ID, UnreadFrom(messages, f.owner.ID))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Error(t, ctx.Err())
	assert.Equal(t, 0, f.thread(t, thread.ID).UnreadInitiator)
}
