package services

import (
	"context"
	"testing"

	"hiresync/internal/changefeed"
	"hiresync/internal/models"
	"hiresync/internal/repositories"
	"hiresync/internal/repositories/memory"
	chatservice "hiresync/internal/services/chat"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	broker *changefeed.MemoryBroker

	owner  *models.User
	seeker *models.User
	job    *models.Job

	notifications NotificationService
	registry      chatservice.Registry
	proposals     ProposalService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{ctx: context.Background(), broker: changefeed.NewMemoryBroker(1)}
	t.Cleanup(func() { _ = f.broker.Close() })
	f.store = memory.NewStore(f.broker)

	f.owner = &models.User{Name: "Olga Owner", Email: "owner@example.com"}
	f.seeker = &models.User{Name: "Sam Seeker", Email: "seeker@example.com"}
	require.NoError(t, f.store.Users().Create(f.ctx, f.owner))
	require.NoError(t, f.store.Users().Create(f.ctx, f.seeker))
	f.job = &models.Job{OwnerID: f.owner.ID, Title: "Backend engineer"}
	require.NoError(t, f.store.Jobs().Create(f.ctx, f.job))

	f.notifications = NewNotificationService(f.store.Notifications(), f.broker, 10)
	f.registry = chatservice.NewRegistry(f.store.Chats(), f.store.Jobs(), f.store.Users())
	f.proposals = NewProposalService(f.store.Proposals(), f.store.Jobs(), f.notifications, f.registry)
	return f
}

func (f *fixture) proposal(t *testing.T, status models.ProposalStatus) *models.Proposal {
	t.Helper()
	p := &models.Proposal{
		JobID:       f.job.ID,
		ApplicantID: f.seeker.ID,
		OwnerID:     f.owner.ID,
		Status:      status,
	}
	require.NoError(t, f.store.Proposals().Create(f.ctx, p))
	return p
}

func (f *fixture) notificationsOf(t *testing.T, userID string) []models.Notification {
	t.Helper()
	items, _, err := f.store.Notifications().FindByUser(f.ctx, userID, repositories.NotificationCriteria{})
	require.NoError(t, err)
	return items
}
