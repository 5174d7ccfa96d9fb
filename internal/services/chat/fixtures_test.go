package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"hiresync/internal/changefeed"
	"hiresync/internal/models"
	chatmodels "hiresync/internal/models/chat"
	"hiresync/internal/repositories/memory"
	"hiresync/internal/services/dto"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	broker   *changefeed.MemoryBroker
	owner    *models.User
	seeker   *models.User
	job      *models.Job
	proposal *models.Proposal

	counters   CounterService
	reconciler Reconciler
	registry   Registry
	stream     Stream
	notifier   *recordingNotifier
	messenger  Messenger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:    context.Background(),
		broker: changefeed.NewMemoryBroker(1),
	}
	t.Cleanup(func() { _ = f.broker.Close() })
	f.store = memory.NewStore(f.broker)

	f.owner = &models.User{Name: "Olga Owner", Email: "owner@example.com"}
	f.seeker = &models.User{Name: "Sam Seeker", Email: "seeker@example.com"}
	require.NoError(t, f.store.Users().Create(f.ctx, f.owner))
	require.NoError(t, f.store.Users().Create(f.ctx, f.seeker))

	f.job = &models.Job{OwnerID: f.owner.ID, Title: "Backend engineer"}
	require.NoError(t, f.store.Jobs().Create(f.ctx, f.job))

	f.proposal = f.newProposal(t)

	chats := f.store.Chats()
	f.counters = NewCounterService(chats)
	f.reconciler = NewReconciler(chats, f.counters)
	f.registry = NewRegistry(chats, f.store.Jobs(), f.store.Users())
	f.stream = NewStream(chats, f.broker, f.reconciler, f.counters, 1)
	f.notifier = &recordingNotifier{}
	f.messenger = NewMessenger(chats, f.counters, f.notifier)
	return f
}

func (f *fixture) newProposal(t *testing.T) *models.Proposal {
	t.Helper()
	p := &models.Proposal{
		JobID:       f.job.ID,
		ApplicantID: f.seeker.ID,
		OwnerID:     f.owner.ID,
		Status:      models.ProposalStatusInterviewing,
	}
	require.NoError(t, f.store.Proposals().Create(f.ctx, p))
	return p
}

func (f *fixture) newThread(t *testing.T) *chatmodels.Thread {
	t.Helper()
	id, created, err := f.registry.CreateOrGet(f.ctx, f.proposal)
	require.NoError(t, err)
	require.True(t, created)
	thread, err := f.store.Chats().FindThreadByID(f.ctx, id)
	require.NoError(t, err)
	return thread
}

// send writes a message with an explicit timestamp and bumps the
// counterpart counter the way the messenger does.
func (f *fixture) send(t *testing.T, thread *chatmodels.Thread, senderID, body string, at time.Time) *chatmodels.Message {
	t.Helper()
	m := &chatmodels.Message{ThreadID: thread.ID, SenderID: senderID, Body: body, CreatedAt: at}
	require.NoError(t, f.store.Chats().CreateMessage(f.ctx, m))

	role, ok := thread.RoleOf(senderID)
	require.True(t, ok)
	require.NoError(t, f.counters.Increment(f.ctx, thread.ID, role.Counterpart()))
	return m
}

func (f *fixture) thread(t *testing.T, id string) *chatmodels.Thread {
	t.Helper()
	thread, err := f.store.Chats().FindThreadByID(f.ctx, id)
	require.NoError(t, err)
	return thread
}

func nextBatch(t *testing.T, sub *Subscription) MessageBatch {
	t.Helper()
	select {
	case b, ok := <-sub.Batches():
		require.True(t, ok, "batches closed")
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
	return MessageBatch{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	reqs []dto.NotifyRequest
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, req dto.NotifyRequest) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	n.reqs = append(n.reqs, req)
	notification := &models.Notification{UserID: req.TargetID, Title: req.Title, Category: req.Category}
	notification.EnsureID()
	return notification, nil
}

func (n *recordingNotifier) requests() []dto.NotifyRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dto.NotifyRequest(nil), n.reqs...)
}
