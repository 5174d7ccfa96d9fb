package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hiresync/internal/models"
	"hiresync/internal/repositories"
	"hiresync/internal/services/dto"
	"hiresync/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func notifyReq(target, title string) dto.NotifyRequest {
	return dto.NotifyRequest{
		TargetID: target,
		Title:    title,
		Category: models.NotificationCategoryProposalStatus,
	}
}

func TestNotify_PersistsForRemoteActor(t *testing.T) {
	f := newFixture(t)

	n, err := f.notifications.Notify(f.ctx, notifyReq(f.seeker.ID, "hello"))
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, f.notifications.IsLocal(f.seeker.ID))

	count, err := f.notifications.GetUnreadCount(f.ctx, f.seeker.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestNotify_Rejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.notifications.Notify(f.ctx, dto.NotifyRequest{Title: "no target", Category: models.NotificationCategoryNewMessage})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.notifications.Notify(f.ctx, dto.NotifyRequest{TargetID: f.seeker.ID, Title: "x", Category: "gossip"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	f.store.FailOn("CreateNotification", errors.New("disk full"))
	_, err = f.notifications.Notify(f.ctx, notifyReq(f.seeker.ID, "lost"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependencyError))
}

// waitFeed ждет снапшот, удовлетворяющий cond. Фоновая перезагрузка ленты
// может ненадолго отставать от локальных изменений.
func waitFeed(t *testing.T, feed *Feed, cond func(*FeedSnapshot) bool) *FeedSnapshot {
	t.Helper()
	require.Eventually(t, func() bool { return cond(feed.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
	return feed.Snapshot()
}

func TestNotify_UpdatesLocalFeed(t *testing.T) {
	f := newFixture(t)

	feed, err := f.notifications.OpenFeed(f.ctx, f.seeker.ID)
	require.NoError(t, err)
	defer feed.Close()
	assert.True(t, f.notifications.IsLocal(f.seeker.ID))
	assert.Empty(t, feed.Snapshot().Items)

	first, err := f.notifications.Notify(f.ctx, notifyReq(f.seeker.ID, "first"))
	require.NoError(t, err)
	second, err := f.notifications.Notify(f.ctx, notifyReq(f.seeker.ID, "second"))
	require.NoError(t, err)

	select {
	case update := <-feed.Updates():
		assert.NotNil(t, update)
	case <-time.After(time.Second):
		t.Fatal("no feed update")
	}

	snap := waitFeed(t, feed, func(s *FeedSnapshot) bool { return len(s.Items) == 2 })
	assert.Equal(t, second.ID, snap.Items[0].ID)
	assert.Equal(t, first.ID, snap.Items[1].ID)
	assert.EqualValues(t, 2, snap.Unread)

	require.NoError(t, f.notifications.MarkAsRead(f.ctx, f.seeker.ID, first.ID))
	snap = waitFeed(t, feed, func(s *FeedSnapshot) bool { return s.Unread == 1 })
	assert.True(t, snap.Items[1].IsRead)

	require.NoError(t, f.notifications.DeleteNotification(f.ctx, f.seeker.ID, first.ID))
	snap = waitFeed(t, feed, func(s *FeedSnapshot) bool { return len(s.Items) == 1 })
	assert.Equal(t, second.ID, snap.Items[0].ID)

	n, err := f.notifications.MarkAllAsRead(f.ctx, f.seeker.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	snap = waitFeed(t, feed, func(s *FeedSnapshot) bool { return s.Unread == 0 })
	assert.True(t, snap.Items[0].IsRead)
}

func TestNotify_OtherActorFeedUntouched(t *testing.T) {
	f := newFixture(t)

	feed, err := f.notifications.OpenFeed(f.ctx, f.owner.ID)
	require.NoError(t, err)
	defer feed.Close()

	_, err = f.notifications.Notify(f.ctx, notifyReq(f.seeker.ID, "not yours"))
	require.NoError(t, err)
	assert.Empty(t, feed.Snapshot().Items)
	assert.Zero(t, feed.Snapshot().Unread)
}

func TestOpenFeed_FollowsOtherProcesses(t *testing.T) {
	f := newFixture(t)

	feed, err := f.notifications.OpenFeed(f.ctx, f.seeker.ID)
	require.NoError(t, err)
	defer feed.Close()

	// второй процесс с общим хранилищем и брокером
	other := NewNotificationService(f.store.Notifications(), f.broker, 10)
	n, err := other.Notify(f.ctx, notifyReq(f.seeker.ID, "from elsewhere"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := feed.Snapshot()
		return len(snap.Items) == 1 && snap.Items[0].ID == n.ID && snap.Unread == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFeedClose_DetachesActor(t *testing.T) {
	f := newFixture(t)

	feed, err := f.notifications.OpenFeed(f.ctx, f.seeker.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.broker.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	feed.Close()
	feed.Close()
	assert.False(t, f.notifications.IsLocal(f.seeker.ID))
	assert.Zero(t, f.broker.Subscribers())
}

func TestOpenFeed_LoadFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("FindNotificationsByUser", errors.New("timeout"))

	_, err := f.notifications.OpenFeed(f.ctx, f.seeker.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependencyError))
	assert.False(t, f.notifications.IsLocal(f.seeker.ID))
	assert.Zero(t, f.broker.Subscribers())
}

// interleavingRepo выполняет after один раз, сразу после первого CountUnread,
// то есть между начальной загрузкой ленты и ее публикацией.
type interleavingRepo struct {
	repositories.NotificationRepository
	once  sync.Once
	after func()
}

func (r *interleavingRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	n, err := r.NotificationRepository.CountUnread(ctx, userID)
	r.once.Do(r.after)
	return n, err
}

func TestOpenFeed_WriteDuringInitialLoadIsNotLost(t *testing.T) {
	f := newFixture(t)
	other := NewNotificationService(f.store.Notifications(), f.broker, 10)

	var written *models.Notification
	repo := &interleavingRepo{NotificationRepository: f.store.Notifications()}
	repo.after = func() {
		n, err := other.Notify(f.ctx, notifyReq(f.seeker.ID, "raced the load"))
		require.NoError(t, err)
		written = n
	}
	svc := NewNotificationService(repo, f.broker, 10)

	feed, err := svc.OpenFeed(f.ctx, f.seeker.ID)
	require.NoError(t, err)
	defer feed.Close()
	require.NotNil(t, written)

	snap := waitFeed(t, feed, func(s *FeedSnapshot) bool { return len(s.Items) == 1 && s.Unread == 1 })
	assert.Equal(t, written.ID, snap.Items[0].ID)
}

func TestMarkAsRead_ForeignNotification(t *testing.T) {
	f := newFixture(t)

	n, err := f.notifications.Notify(f.ctx, notifyReq(f.seeker.ID, "private"))
	require.NoError(t, err)

	err = f.notifications.MarkAsRead(f.ctx, f.owner.ID, n.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
	err = f.notifications.DeleteNotification(f.ctx, f.owner.ID, n.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
}

func TestGetUserNotifications_DecodesData(t *testing.T) {
	f := newFixture(t)

	req := notifyReq(f.seeker.ID, "with data")
	req.Data = &dto.NotificationData{ProposalID: "p-1", Status: string(models.ProposalStatusAccepted)}
	good, err := f.notifications.Notify(f.ctx, req)
	require.NoError(t, err)

	bad := &models.Notification{
		UserID:   f.seeker.ID,
		Category: models.NotificationCategoryProposalStatus,
		Title:    "legacy",
		Data:     datatypes.JSON(`{"status":"hired"}`),
	}
	bad.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.store.Notifications().Create(f.ctx, bad))

	list, err := f.notifications.GetUserNotifications(f.ctx, f.seeker.ID, repositories.NotificationCriteria{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)
	assert.EqualValues(t, 2, list.Unread)
	require.Len(t, list.Notifications, 2)

	assert.Equal(t, good.ID, list.Notifications[0].ID)
	require.NotNil(t, list.Notifications[0].Data)
	assert.Equal(t, "p-1", list.Notifications[0].Data.ProposalID)

	assert.Equal(t, bad.ID, list.Notifications[1].ID)
	assert.Nil(t, list.Notifications[1].Data)
}

func TestCleanOldNotifications(t *testing.T) {
	f := newFixture(t)
	old := time.Now().UTC().Add(-48 * time.Hour)

	seed := func(read bool, createdAt time.Time) string {
		n := &models.Notification{UserID: f.seeker.ID, Category: models.NotificationCategoryNewMessage, Title: "m", IsRead: read}
		n.CreatedAt = createdAt
		require.NoError(t, f.store.Notifications().Create(f.ctx, n))
		return n.ID
	}
	seed(true, old)
	keptUnread := seed(false, old)
	keptFresh := seed(true, time.Now().UTC())

	n, err := f.notifications.CleanOldNotifications(f.ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := f.notifications.GetUserNotifications(f.ctx, f.seeker.ID, repositories.NotificationCriteria{})
	require.NoError(t, err)
	ids := make([]string, 0, len(list.Notifications))
	for _, r := range list.Notifications {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{keptUnread, keptFresh}, ids)

	f.store.FailOn("DeleteReadOlderThan", errors.New("locked"))
	_, err = f.notifications.CleanOldNotifications(f.ctx, time.Hour)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependencyError))
}
