package services

import (
	chatservice "hiresync/internal/services/chat"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	UserService         *UserService
	JobService          *JobService
	ProposalService     ProposalService
	NotificationService NotificationService

	ChatRegistry   chatservice.Registry
	ChatStream     chatservice.Stream
	ChatMessenger  chatservice.Messenger
	ChatAggregator chatservice.Aggregator
	ChatCounters   chatservice.CounterService
	ChatReconciler chatservice.Reconciler
}
