package repositories

import (
	"context"
	"time"

	"hiresync/internal/changefeed"
	"hiresync/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	FindByUser(ctx context.Context, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, id string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteReadOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// NotificationCriteria - фильтр списка уведомлений.
type NotificationCriteria struct {
	UnreadOnly bool   `form:"unread_only"`
	Category   string `form:"category" binding:"omitempty,is-notification-category"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
}

type NotificationRepositoryImpl struct {
	db   *gorm.DB
	feed changefeed.Publisher
}

func NewNotificationRepository(db *gorm.DB, feed changefeed.Publisher) NotificationRepository {
	return &NotificationRepositoryImpl{db: db, feed: feed}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return err
	}
	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicNotifications, notification.UserID, notification.ID, changefeed.OpInsert))
	return nil
}

func (r *NotificationRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&notification).Error; err != nil {
		return nil, notFound(err, ErrNotificationNotFound)
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) FindByUser(ctx context.Context, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	var (
		notifications []models.Notification
		total         int64
	)

	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if criteria.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if criteria.Category != "" {
		query = query.Where("category = ?", criteria.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if criteria.Limit > 0 {
		query = query.Limit(criteria.Limit)
	}
	err := query.
		Offset(criteria.Offset).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, total, err
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicNotifications, userID, id, changefeed.OpUpdate))
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicNotifications, userID, "", changefeed.OpUpdate))
	}
	return res.RowsAffected, nil
}

func (r *NotificationRepositoryImpl) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicNotifications, userID, id, changefeed.OpDelete))
	return nil
}

// DeleteReadOlderThan is the retention sweep. Unread notifications are kept.
func (r *NotificationRepositoryImpl) DeleteReadOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, before).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
