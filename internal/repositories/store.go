package repositories

import (
	"hiresync/internal/changefeed"

	"gorm.io/gorm"
)

// Store groups the repositories of one backing store. The postgres
// implementation is GormStore; tests and single-process runs use memory.Store.
type Store interface {
	Chats() ChatRepository
	Proposals() ProposalRepository
	Jobs() JobRepository
	Users() UserRepository
	Notifications() NotificationRepository
}

type GormStore struct {
	chats         ChatRepository
	proposals     ProposalRepository
	jobs          JobRepository
	users         UserRepository
	notifications NotificationRepository
}

// NewGormStore builds the gorm repositories. Writes are announced on feed.
func NewGormStore(db *gorm.DB, feed changefeed.Publisher) *GormStore {
	return &GormStore{
		chats:         NewChatRepository(db, feed),
		proposals:     NewProposalRepository(db, feed),
		jobs:          NewJobRepository(db),
		users:         NewUserRepository(db),
		notifications: NewNotificationRepository(db, feed),
	}
}

func (s *GormStore) Chats() ChatRepository                 { return s.chats }
func (s *GormStore) Proposals() ProposalRepository         { return s.proposals }
func (s *GormStore) Jobs() JobRepository                   { return s.jobs }
func (s *GormStore) Users() UserRepository                 { return s.users }
func (s *GormStore) Notifications() NotificationRepository { return s.notifications }
