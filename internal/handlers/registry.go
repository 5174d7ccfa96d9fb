package handlers

import (
	"hiresync/internal/services"
	"hiresync/internal/validator"
)

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	UserHandler         *UserHandler
	JobHandler          *JobHandler
	ProposalHandler     *ProposalHandler
	ChatHandler         *ChatHandler
	NotificationHandler *NotificationHandler
}

// NewAppHandlers собирает хэндлеры поверх готовых сервисов.
func NewAppHandlers(s *services.ServiceContainer, v *validator.Validator) *AppHandlers {
	base := NewBaseHandler(v)
	return &AppHandlers{
		UserHandler:         NewUserHandler(base, s.UserService),
		JobHandler:          NewJobHandler(base, s.JobService, s.ProposalService),
		ProposalHandler:     NewProposalHandler(base, s.ProposalService),
		ChatHandler:         NewChatHandler(base, s.ChatAggregator, s.ChatMessenger, s.ChatReconciler),
		NotificationHandler: NewNotificationHandler(base, s.NotificationService),
	}
}
