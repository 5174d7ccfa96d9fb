package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hiresync/internal/changefeed"
	"hiresync/internal/logger"
	"hiresync/internal/models"
	"hiresync/internal/repositories"
	"hiresync/internal/services/dto"
	"hiresync/internal/validator"
	"hiresync/pkg/apperrors"

	"gorm.io/datatypes"
)

const notificationDomain = "notification"

type NotificationService interface {
	// Notify persists one notification and, if the target is a local actor,
	// pushes it to that actor's live feeds.
	Notify(ctx context.Context, req dto.NotifyRequest) (*models.Notification, error)

	GetUserNotifications(ctx context.Context, userID string, criteria repositories.NotificationCriteria) (*dto.NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, userID, notificationID string) error
	CleanOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error)

	// OpenFeed registers userID as a local actor for the life of the feed.
	OpenFeed(ctx context.Context, userID string) (*Feed, error)
	IsLocal(userID string) bool
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	feed             changefeed.Broker
	hub              *feedHub
	feedSize         int
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	feed changefeed.Broker,
	feedSize int,
) NotificationService {
	if feedSize <= 0 {
		feedSize = 100
	}
	return &notificationService{
		notificationRepo: notificationRepo,
		feed:             feed,
		hub:              newFeedHub(),
		feedSize:         feedSize,
	}
}

// ---------------- Notification operations ----------------

func (s *notificationService) Notify(ctx context.Context, req dto.NotifyRequest) (*models.Notification, error) {
	if err := validator.Default().Validate(&req); err != nil {
		return nil, validationFailed(err)
	}

	var dataJSON datatypes.JSON
	if req.Data != nil {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, apperrors.InternalError(fmt.Errorf("failed to marshal notification data: %w", err))
		}
		dataJSON = datatypes.JSON(raw)
	}

	notification := &models.Notification{
		UserID:    req.TargetID,
		Category:  req.Category,
		Title:     req.Title,
		Body:      req.Body,
		RelatedID: req.RelatedID,
		Data:      dataJSON,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return nil, apperrors.DependencyError(err, notificationDomain)
	}

	if feeds := s.hub.local(req.TargetID); len(feeds) > 0 {
		unread := s.recount(ctx, req.TargetID, feeds[0].Snapshot().Unread+1)
		for _, f := range feeds {
			f.prepend(*notification, unread)
		}
	}

	logger.CtxDebug(ctx, "notification created",
		"notification_id", notification.ID, "user_id", req.TargetID, "category", req.Category)
	return notification, nil
}

func (s *notificationService) GetUserNotifications(ctx context.Context, userID string, criteria repositories.NotificationCriteria) (*dto.NotificationListResponse, error) {
	notifications, total, err := s.notificationRepo.FindByUser(ctx, userID, criteria)
	if err != nil {
		return nil, apperrors.DependencyError(err, notificationDomain)
	}
	unread, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, apperrors.DependencyError(err, notificationDomain)
	}

	return &dto.NotificationListResponse{
		Notifications: BuildNotificationResponses(ctx, notifications),
		Total:         total,
		Unread:        unread,
	}, nil
}

func (s *notificationService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.DependencyError(err, notificationDomain)
	}
	return count, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	if err := s.notificationRepo.MarkAsRead(ctx, userID, notificationID); err != nil {
		return handleNotificationError(err)
	}

	if feeds := s.hub.local(userID); len(feeds) > 0 {
		unread := s.recount(ctx, userID, max(feeds[0].Snapshot().Unread-1, 0))
		for _, f := range feeds {
			f.markRead(notificationID, unread)
		}
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notificationRepo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, apperrors.DependencyError(err, notificationDomain)
	}

	for _, f := range s.hub.local(userID) {
		f.markRead("", 0)
	}
	return n, nil
}

func (s *notificationService) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	if err := s.notificationRepo.Delete(ctx, userID, notificationID); err != nil {
		return handleNotificationError(err)
	}

	if feeds := s.hub.local(userID); len(feeds) > 0 {
		unread := s.recount(ctx, userID, feeds[0].Snapshot().Unread)
		for _, f := range feeds {
			f.remove(notificationID, unread)
		}
	}
	return nil
}

// CleanOldNotifications удаляет прочитанные уведомления старше olderThan.
func (s *notificationService) CleanOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.notificationRepo.DeleteReadOlderThan(ctx, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, apperrors.DependencyError(err, notificationDomain)
	}
	return n, nil
}

// ---------------- Live feeds ----------------

func (s *notificationService) IsLocal(userID string) bool {
	return len(s.hub.local(userID)) > 0
}

func (s *notificationService) OpenFeed(ctx context.Context, userID string) (*Feed, error) {
	// подписка до первой загрузки: запись между ними вызовет перезагрузку в follow
	var events *changefeed.Subscription
	if s.feed != nil {
		events = s.feed.Subscribe(changefeed.TopicNotifications, userID)
	}

	items, unread, err := s.load(ctx, userID)
	if err != nil {
		if events != nil {
			events.Close()
		}
		return nil, err
	}

	f := newFeed(userID, s.feedSize, &FeedSnapshot{Items: items, Unread: unread})
	s.hub.attach(f)

	followCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go s.follow(followCtx, f, events, done)

	f.onClose = func() {
		s.hub.detach(f)
		cancel()
		<-done
	}
	return f, nil
}

// follow reloads the feed when another process changes the actor's
// notifications. Local changes also arrive here; the reload is then a no-op.
func (s *notificationService) follow(ctx context.Context, f *Feed, events *changefeed.Subscription, done chan struct{}) {
	defer close(done)
	if events == nil {
		<-ctx.Done()
		return
	}
	defer events.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events.Events():
			if !ok {
				return
			}
			items, unread, err := s.load(ctx, f.ActorID)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("notification feed reload failed", "user_id", f.ActorID, "error", err)
				}
				continue
			}
			f.replace(items, unread)
		}
	}
}

func (s *notificationService) load(ctx context.Context, userID string) ([]models.Notification, int64, error) {
	items, _, err := s.notificationRepo.FindByUser(ctx, userID, repositories.NotificationCriteria{Limit: s.feedSize})
	if err != nil {
		return nil, 0, apperrors.DependencyError(err, notificationDomain)
	}
	unread, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, apperrors.DependencyError(err, notificationDomain)
	}
	return items, unread, nil
}

// recount returns the stored unread count, or fallback if the store is unreachable.
func (s *notificationService) recount(ctx context.Context, userID string, fallback int64) int64 {
	unread, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		logger.CtxWarn(ctx, "unread notification count failed", "user_id", userID, "error", err)
		return fallback
	}
	return unread
}

// ---------------- Helpers ----------------

func handleNotificationError(err error) error {
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return apperrors.ErrNotificationNotFound.WithError(err)
	}
	return apperrors.DependencyError(err, notificationDomain)
}

// BuildNotificationResponses renders notifications. Stored data payloads are
// decoded in one batch; a payload that does not match the schema is logged
// and left out of its response instead of being half-filled.
func BuildNotificationResponses(ctx context.Context, notifications []models.Notification) []*dto.NotificationResponse {
	raws := make([][]byte, 0, len(notifications))
	index := make([]int, 0, len(notifications))
	for i, n := range notifications {
		if len(n.Data) > 0 {
			raws = append(raws, []byte(n.Data))
			index = append(index, i)
		}
	}

	data := make(map[int]*dto.NotificationData, len(raws))
	records, err := validator.DecodeRecords[dto.NotificationData](raws)
	for _, r := range records {
		if r.OK() {
			value := r.Value
			data[index[r.Index]] = &value
		}
	}
	var decodeErr *validator.DecodeError
	if errors.As(err, &decodeErr) {
		for i, ferr := range decodeErr.Failures {
			logger.CtxWarn(ctx, "notification data rejected",
				"notification_id", notifications[index[i]].ID, "error", ferr)
		}
	}

	responses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		responses = append(responses, &dto.NotificationResponse{
			ID:        n.ID,
			UserID:    n.UserID,
			Category:  n.Category,
			Title:     n.Title,
			Body:      n.Body,
			RelatedID: n.RelatedID,
			Data:      data[i],
			IsRead:    n.IsRead,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return responses
}
