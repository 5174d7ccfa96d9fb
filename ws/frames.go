package ws

import (
	"encoding/json"

	"hiresync/internal/services"
	"hiresync/internal/services/dto"
	"hiresync/pkg/apperrors"
)

// Входящие действия клиента.
const (
	ActionOpenThread  = "open_thread"
	ActionCloseThread = "close_thread"
	ActionSendMessage = "send_message"
)

// Типы исходящих кадров.
const (
	FrameMessages      = "messages"
	FrameMessageSent   = "message_sent"
	FrameThreadClosed  = "thread_closed"
	FrameNotifications = "notifications"
	FrameError         = "error"
)

type IncomingWSMessage struct {
	Action string          `json:"action" validate:"required,oneof=open_thread close_thread send_message"`
	Data   json.RawMessage `json:"data"`
}

type openThreadPayload struct {
	ThreadID string `json:"thread_id" validate:"required"`
}

type sendMessagePayload struct {
	ThreadID string `json:"thread_id" validate:"required"`
	Body     string `json:"body" validate:"required,max=4000"`
}

type OutgoingWSMessage struct {
	Type  string              `json:"type"`
	Data  any                 `json:"data,omitempty"`
	Error *apperrors.AppError `json:"error,omitempty"`
}

func messagesFrame(batch *dto.MessageBatchResponse) OutgoingWSMessage {
	return OutgoingWSMessage{Type: FrameMessages, Data: batch}
}

func notificationsFrame(diff services.FeedDiff) OutgoingWSMessage {
	return OutgoingWSMessage{Type: FrameNotifications, Data: diff}
}

func errorFrame(err error) OutgoingWSMessage {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.NewBadRequestError(err.Error())
	}
	return OutgoingWSMessage{Type: FrameError, Error: appErr}
}
