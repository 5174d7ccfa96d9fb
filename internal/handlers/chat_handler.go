package handlers

import (
	"net/http"

	"hiresync/internal/logger"
	chatservice "hiresync/internal/services/chat"
	"hiresync/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	*BaseHandler
	aggregator chatservice.Aggregator
	messenger  chatservice.Messenger
	reconciler chatservice.Reconciler
}

func NewChatHandler(
	base *BaseHandler,
	aggregator chatservice.Aggregator,
	messenger chatservice.Messenger,
	reconciler chatservice.Reconciler,
) *ChatHandler {
	return &ChatHandler{
		BaseHandler: base,
		aggregator:  aggregator,
		messenger:   messenger,
		reconciler:  reconciler,
	}
}

func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	chats := r.Group("/chats")
	{
		chats.GET("", h.ListThreads)
		chats.GET("/:threadId", h.GetThread)
		chats.GET("/:threadId/messages", h.GetMessages)
		chats.POST("/:threadId/messages", h.SendMessage)
		chats.POST("/:threadId/read", h.MarkAsRead)
	}
}

// ListThreads отдает объединенный список чатов. Если одна из выборок упала,
// ответ 206 с флагами, какая именно.
func (h *ChatHandler) ListThreads(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	list, err := h.aggregator.ListThreads(c.Request.Context(), userID)
	if list == nil {
		h.HandleServiceError(c, err)
		return
	}
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "thread list unavailable", "error", err)
	}

	resp := &dto.ThreadListResponse{
		Threads:         make([]*dto.ThreadResponse, 0, len(list.Threads)),
		Partial:         list.Partial,
		InitiatorFailed: list.InitiatorFailed,
		RecipientFailed: list.RecipientFailed,
	}
	for i := range list.Threads {
		resp.Threads = append(resp.Threads, dto.NewThreadResponse(&list.Threads[i], userID))
	}

	status := http.StatusOK
	if list.Partial {
		status = http.StatusPartialContent
	}
	c.JSON(status, resp)
}

func (h *ChatHandler) GetThread(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	thread, err := h.messenger.Thread(c.Request.Context(), c.Param("threadId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewThreadResponse(thread, userID))
}

// GetMessages - разовое чтение истории. Для живого потока есть websocket.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	threadID := c.Param("threadId")
	messages, err := h.messenger.Messages(c.Request.Context(), threadID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMessageBatchResponse(threadID, messages, userID))
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	req.ThreadID = c.Param("threadId")
	req.SenderID = userID

	message, err := h.messenger.Send(c.Request.Context(), req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewMessageResponse(message, userID))
}

// MarkAsRead помечает прочитанными все входящие сообщения чата.
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	threadID := c.Param("threadId")
	messages, err := h.messenger.Messages(c.Request.Context(), threadID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	marked, err := h.reconciler.Reconcile(c.Request.Context(), threadID, userID, chatservice.UnreadFrom(messages, userID))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
