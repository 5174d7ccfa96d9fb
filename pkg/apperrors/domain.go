package apperrors

import (
	"fmt"
	"net/http"
)

/*
Этот файл содержит фабрики и предопределенные переменные
для ошибок бизнес-логики синхронизации чатов и уведомлений.
*/

// =========================================================================
// Фабричные ФУНКЦИИ (Используются для оборачивания ошибок, напр. из репозитория)
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// DependencyError - a store or identity call failed. Surfaced to the caller,
// never retried automatically.
func DependencyError(err error, domain string) *AppError {
	return Wrap(err, CodeDependencyError, domain, "Dependency call failed", http.StatusBadGateway)
}

// TransitionRejected - the review state machine refused the requested edge.
func TransitionRejected(from, to string) *AppError {
	return New(CodeTransitionRejected, "proposal",
		fmt.Sprintf("Transition %s -> %s is not allowed", from, to),
		http.StatusConflict,
	).WithDetails(map[string]string{"from": from, "to": to})
}

// PartialAggregationFailure - one or both branch queries of the thread list failed.
func PartialAggregationFailure(err error) *AppError {
	return Wrap(err, CodePartialAggregation, "chat", "Thread list is incomplete", http.StatusPartialContent)
}

// =========================================================================
// Фабричные ФУНКЦИИ (Для создания новых ошибок)
// =========================================================================

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// =========================================================================
// Предопределенные ПЕРЕМЕННЫЕ (Для частых, статичных ошибок)
// =========================================================================

// --- Chat ---

// ErrThreadNotFound - чат не найден.
var ErrThreadNotFound = New(
	CodeNotFound,
	"chat",
	"Thread not found",
	http.StatusNotFound,
)

// ErrNotParticipant - пользователь не является участником чата.
var ErrNotParticipant = New(
	CodeForbidden,
	"chat",
	"Access to thread denied",
	http.StatusForbidden,
)

// ErrSubscriptionActive - в этом контексте просмотра уже открыт поток сообщений.
var ErrSubscriptionActive = New(
	CodeSubscriptionActive,
	"chat",
	"Another thread subscription is active in this view context",
	http.StatusConflict,
)

// ErrEmptyMessage - пустое сообщение.
var ErrEmptyMessage = New(
	CodeValidationFailed,
	"validation",
	"Message body must not be empty",
	http.StatusBadRequest,
)

// --- Proposal ---

// ErrProposalNotFound - отклик не найден.
var ErrProposalNotFound = New(
	CodeNotFound,
	"proposal",
	"Proposal not found",
	http.StatusNotFound,
)

// ErrJobNotFound - вакансия не найдена.
var ErrJobNotFound = New(
	CodeNotFound,
	"job",
	"Job not found",
	http.StatusNotFound,
)

// ErrNotJobOwner - только владелец вакансии может рассматривать отклики.
var ErrNotJobOwner = New(
	CodeForbidden,
	"proposal",
	"Only the job owner can review this proposal",
	http.StatusForbidden,
)

// ErrUnknownStatus - статус не существует.
var ErrUnknownStatus = New(
	CodeValidationFailed,
	"proposal",
	"Unknown proposal status",
	http.StatusBadRequest,
)

// --- Notifications ---

// ErrNotificationNotFound - уведомление не найдено.
var ErrNotificationNotFound = New(
	CodeNotFound,
	"notification",
	"Notification not found",
	http.StatusNotFound,
)

// ErrInsufficientPermissions - чужое уведомление.
var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// ErrInvalidToken - неверный или просроченный токен.
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)
