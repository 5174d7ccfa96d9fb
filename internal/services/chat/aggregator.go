package chat

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"hiresync/internal/logger"
	chatmodels "hiresync/internal/models/chat"
	"hiresync/internal/repositories"
	"hiresync/pkg/apperrors"

	"golang.org/x/sync/errgroup"
)

// ThreadList is the merged thread list of one actor. A failed branch sets its
// flag and Partial; the threads of the other branch are still returned.
type ThreadList struct {
	Threads         []chatmodels.Thread
	InitiatorFailed bool
	RecipientFailed bool
	Partial         bool
}

// Aggregator merges "actor is initiator" and "actor is recipient".
type Aggregator interface {
	ListThreads(ctx context.Context, actorID string) (*ThreadList, error)
}

type aggregator struct {
	chats repositories.ChatRepository
}

func NewAggregator(chats repositories.ChatRepository) Aggregator {
	return &aggregator{chats: chats}
}

// ListThreads runs both branch queries concurrently and emits once, after both
// have reported. Only the failure of both branches is returned as an error,
// and even then the (empty) list comes with it.
func (a *aggregator) ListThreads(ctx context.Context, actorID string) (*ThreadList, error) {
	var (
		g                          errgroup.Group
		asInitiator, asRecipient   []chatmodels.Thread
		initiatorErr, recipientErr error
	)

	// Ветки не возвращают ошибку в errgroup: падение одной не должно
	// отменять другую.
	g.Go(func() error {
		asInitiator, initiatorErr = a.chats.FindThreadsByInitiator(ctx, actorID)
		return nil
	})
	g.Go(func() error {
		asRecipient, recipientErr = a.chats.FindThreadsByRecipient(ctx, actorID)
		return nil
	})
	_ = g.Wait()

	list := &ThreadList{
		InitiatorFailed: initiatorErr != nil,
		RecipientFailed: recipientErr != nil,
	}
	list.Partial = list.InitiatorFailed || list.RecipientFailed

	if initiatorErr != nil {
		logger.CtxWarn(ctx, "initiator thread query failed", "actor_id", actorID, "error", initiatorErr)
	}
	if recipientErr != nil {
		logger.CtxWarn(ctx, "recipient thread query failed", "actor_id", actorID, "error", recipientErr)
	}

	list.Threads = MergeThreads(asInitiator, asRecipient)

	if list.InitiatorFailed && list.RecipientFailed {
		return list, apperrors.PartialAggregationFailure(errors.Join(initiatorErr, recipientErr))
	}
	return list, nil
}

// MergeThreads concatenates both branches, drops duplicates by id and sorts
// by last-message time, newest first. Threads without messages come last,
// newest creation first.
func MergeThreads(branches ...[]chatmodels.Thread) []chatmodels.Thread {
	seen := make(map[string]struct{})
	out := make([]chatmodels.Thread, 0)
	for _, branch := range branches {
		for _, t := range branch {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}

	slices.SortFunc(out, compareThreads)
	return out
}

func compareThreads(a, b chatmodels.Thread) int {
	aAt, aHas := a.SortKey()
	bAt, bHas := b.SortKey()
	if aHas != bHas {
		if aHas {
			return -1
		}
		return 1
	}
	return cmp.Or(bAt.Compare(aAt), cmp.Compare(a.ID, b.ID))
}
