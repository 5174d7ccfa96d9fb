package validator

import (
	"log"

	"hiresync/internal/models"
	"hiresync/internal/models/chat"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует кастомные функции валидации.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Ошибка регистрации - ошибка времени запуска.
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-proposal-status", validateProposalStatus)
	mustRegister("is-participant-role", validateParticipantRole)
	mustRegister("is-notification-category", validateNotificationCategory)
}

func validateProposalStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // пустое значение проверяет 'required'
	}
	_, ok := models.ParseProposalStatus(value)
	return ok
}

func validateParticipantRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return chat.ParticipantRole(value).Valid()
}

func validateNotificationCategory(fl validator.FieldLevel) bool {
	switch models.NotificationCategory(fl.Field().String()) {
	case "",
		models.NotificationCategoryNewProposal,
		models.NotificationCategoryProposalStatus,
		models.NotificationCategoryNewMessage:
		return true
	}
	return false
}
