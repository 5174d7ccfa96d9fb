package repositories

import (
	"context"
	"errors"

	"hiresync/internal/changefeed"
	"hiresync/internal/logger"

	"gorm.io/gorm"
)

var (
	ErrThreadNotFound       = errors.New("thread not found")
	ErrDuplicateThread      = errors.New("thread for this proposal already exists")
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrStatusChanged        = errors.New("proposal status changed concurrently")
	ErrJobNotFound          = errors.New("job not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// publish announces a committed write. A failed publish does not undo the
// write; live consumers catch up on the next event.
func publish(ctx context.Context, p changefeed.Publisher, evt changefeed.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		logger.CtxWarn(ctx, "change event not published",
			"topic", evt.Topic, "key", evt.Key, "error", err)
	}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
