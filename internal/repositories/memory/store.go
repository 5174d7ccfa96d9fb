// Package memory implements the repository interfaces over process memory.
// It backs the "memory" store driver and the service tests.
package memory

import (
	"context"
	"sync"

	"hiresync/internal/changefeed"
	"hiresync/internal/logger"
	"hiresync/internal/models"
	"hiresync/internal/models/chat"
	"hiresync/internal/repositories"
)

// Store holds every collection behind one lock.
type Store struct {
	mu sync.RWMutex

	users            map[string]models.User
	jobs             map[string]models.Job
	proposals        map[string]models.Proposal
	threads          map[string]chat.Thread
	threadByProposal map[string]string
	messages         map[string][]chat.Message
	notifications    map[string]models.Notification

	faultMu sync.RWMutex
	faults  map[string]error

	feed changefeed.Publisher
}

func NewStore(feed changefeed.Publisher) *Store {
	return &Store{
		users:            make(map[string]models.User),
		jobs:             make(map[string]models.Job),
		proposals:        make(map[string]models.Proposal),
		threads:          make(map[string]chat.Thread),
		threadByProposal: make(map[string]string),
		messages:         make(map[string][]chat.Message),
		notifications:    make(map[string]models.Notification),
		faults:           make(map[string]error),
		feed:             feed,
	}
}

func (s *Store) Chats() repositories.ChatRepository {
	return &chatRepository{s: s}
}

func (s *Store) Proposals() repositories.ProposalRepository {
	return &proposalRepository{s: s}
}

func (s *Store) Jobs() repositories.JobRepository {
	return &jobRepository{s: s}
}

func (s *Store) Users() repositories.UserRepository {
	return &userRepository{s: s}
}

func (s *Store) Notifications() repositories.NotificationRepository {
	return &notificationRepository{s: s}
}

// FailOn makes the named repository operation return err until Heal is
// called. Operation names are the interface method names, e.g.
// "FindThreadsByInitiator".
func (s *Store) FailOn(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

func (s *Store) Heal(op string) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	delete(s.faults, op)
}

func (s *Store) fault(op string) error {
	s.faultMu.RLock()
	defer s.faultMu.RUnlock()
	return s.faults[op]
}

func (s *Store) publish(ctx context.Context, evt changefeed.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, evt); err != nil {
		logger.CtxWarn(ctx, "change event not published", "topic", evt.Topic, "key", evt.Key, "error", err)
	}
}
