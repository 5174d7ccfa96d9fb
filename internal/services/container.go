package services

import (
	"hiresync/internal/changefeed"
	"hiresync/internal/repositories"
	chatservice "hiresync/internal/services/chat"
)

// Options - размеры буферов живых потоков.
type Options struct {
	FeedSize     int
	StreamBuffer int
}

// NewServiceContainer связывает сервисы поверх одного хранилища и брокера.
func NewServiceContainer(store repositories.Store, broker changefeed.Broker, opts Options) *ServiceContainer {
	notifications := NewNotificationService(store.Notifications(), broker, opts.FeedSize)

	counters := chatservice.NewCounterService(store.Chats())
	reconciler := chatservice.NewReconciler(store.Chats(), counters)
	registry := chatservice.NewRegistry(store.Chats(), store.Jobs(), store.Users())

	return &ServiceContainer{
		UserService:         NewUserService(store.Users()),
		JobService:          NewJobService(store.Jobs(), store.Users()),
		ProposalService:     NewProposalService(store.Proposals(), store.Jobs(), notifications, registry),
		NotificationService: notifications,

		ChatRegistry:   registry,
		ChatStream:     chatservice.NewStream(store.Chats(), broker, reconciler, counters, opts.StreamBuffer),
		ChatMessenger:  chatservice.NewMessenger(store.Chats(), counters, notifications),
		ChatAggregator: chatservice.NewAggregator(store.Chats()),
		ChatCounters:   counters,
		ChatReconciler: reconciler,
	}
}
