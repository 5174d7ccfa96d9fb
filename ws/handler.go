package ws

import (
	"context"
	"net/http"

	"hiresync/internal/identity"
	"hiresync/internal/logger"
	"hiresync/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin проверяет CORSMiddleware перед апгрейдом
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	Manager *WebSocketManager
}

func NewWebSocketHandler(manager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{
		Manager: manager,
	}
}

// ServeWS ожидает актора от AuthMiddleware (токен в ?token=).
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	actor, ok := identity.FromContext(c.Request.Context())
	if !ok {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	// контекст запроса отменяется после возврата из хэндлера,
	// подключению нужны только его значения
	ctx := context.WithoutCancel(c.Request.Context())
	client := newClient(ctx, h.Manager, conn, uuid.NewString(), actor.ID)
	if err := client.start(); err != nil {
		logger.CtxWithError(ctx, "websocket session failed to start", err)
		_ = conn.WriteJSON(errorFrame(err))
		client.close()
		return
	}
	logger.CtxDebug(ctx, "websocket connected", "conn_id", client.ID)
}
