// Package chat holds the thread lifecycle: creation from review events,
// live message streams, read-state reconciliation, unread counters and the
// merged thread list.
package chat

import (
	"errors"

	"hiresync/internal/repositories"
	"hiresync/pkg/apperrors"
)

const domain = "chat"

// handleChatError maps repository errors onto the application taxonomy.
// Anything that is not a known "absent" error is a failed dependency.
func handleChatError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, repositories.ErrThreadNotFound) {
		return apperrors.ErrThreadNotFound.WithError(err)
	}
	return apperrors.DependencyError(err, domain)
}
