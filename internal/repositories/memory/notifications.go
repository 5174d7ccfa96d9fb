package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"hiresync/internal/changefeed"
	"hiresync/internal/models"
	"hiresync/internal/repositories"
)

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.s.fault("CreateNotification"); err != nil {
		return err
	}
	n.EnsureID()

	r.s.mu.Lock()
	r.s.notifications[n.ID] = *n
	r.s.mu.Unlock()

	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicNotifications, n.UserID, n.ID, changefeed.OpInsert))
	return nil
}

func (r *notificationRepository) FindByID(_ context.Context, id string) (*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.notifications[id]
	if !ok {
		return nil, repositories.ErrNotificationNotFound
	}
	return &n, nil
}

func (r *notificationRepository) FindByUser(_ context.Context, userID string, criteria repositories.NotificationCriteria) ([]models.Notification, int64, error) {
	if err := r.s.fault("FindNotificationsByUser"); err != nil {
		return nil, 0, err
	}

	r.s.mu.RLock()
	var out []models.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID {
			continue
		}
		if criteria.UnreadOnly && n.IsRead {
			continue
		}
		if criteria.Category != "" && string(n.Category) != criteria.Category {
			continue
		}
		out = append(out, n)
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Notification) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})

	total := int64(len(out))
	if criteria.Offset > 0 {
		if criteria.Offset >= len(out) {
			return nil, total, nil
		}
		out = out[criteria.Offset:]
	}
	if criteria.Limit > 0 && criteria.Limit < len(out) {
		out = out[:criteria.Limit]
	}
	return out, total, nil
}

func (r *notificationRepository) CountUnread(_ context.Context, userID string) (int64, error) {
	if err := r.s.fault("CountUnread"); err != nil {
		return 0, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		r.s.mu.Unlock()
		return repositories.ErrNotificationNotFound
	}
	now := time.Now().UTC()
	n.IsRead = true
	n.ReadAt = &now
	r.s.notifications[id] = n
	r.s.mu.Unlock()

	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicNotifications, userID, id, changefeed.OpUpdate))
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	now := time.Now().UTC()

	var count int64
	r.s.mu.Lock()
	for id, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			r.s.notifications[id] = n
			count++
		}
	}
	r.s.mu.Unlock()

	if count > 0 {
		r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicNotifications, userID, "", changefeed.OpUpdate))
	}
	return count, nil
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		r.s.mu.Unlock()
		return repositories.ErrNotificationNotFound
	}
	delete(r.s.notifications, id)
	r.s.mu.Unlock()

	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicNotifications, userID, id, changefeed.OpDelete))
	return nil
}

func (r *notificationRepository) DeleteReadOlderThan(_ context.Context, before time.Time) (int64, error) {
	if err := r.s.fault("DeleteReadOlderThan"); err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for id, n := range r.s.notifications {
		if n.IsRead && n.CreatedAt.Before(before) {
			delete(r.s.notifications, id)
			count++
		}
	}
	return count, nil
}
