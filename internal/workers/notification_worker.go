package workers

import (
	"context"
	"sync"
	"time"

	"hiresync/internal/logger"
)

const notificationWorker = "notification_retention"

// NotificationCleaner - часть сервиса уведомлений, нужная воркеру.
type NotificationCleaner interface {
	CleanOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error)
}

type NotificationWorker struct {
	cleaner   NotificationCleaner
	interval  time.Duration
	retention time.Duration

	wg sync.WaitGroup
}

func NewNotificationWorker(cleaner NotificationCleaner, interval, retention time.Duration) *NotificationWorker {
	return &NotificationWorker{cleaner: cleaner, interval: interval, retention: retention}
}

// Start запускает фоновые задачи для уведомлений
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.purgeReadNotifications(ctx)
}

// Wait блокируется, пока задачи не завершатся после отмены ctx.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

// purgeReadNotifications удаляет прочитанные уведомления старше срока хранения
func (w *NotificationWorker) purgeReadNotifications(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *NotificationWorker) runOnce(ctx context.Context) int64 {
	n, err := w.cleaner.CleanOldNotifications(ctx, w.retention)
	if err != nil {
		logger.WorkerLog(notificationWorker, "purge_read", err)
		return 0
	}
	if n > 0 {
		logger.Info("Purged read notifications", "worker", notificationWorker, "deleted", n)
	}
	return n
}
