package middleware

import (
	"strings"

	"hiresync/internal/identity"
	"hiresync/internal/logger"
	"hiresync/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware - middleware проверки JWT.
// Браузер не может выставить заголовок при открытии websocket, поэтому
// токен также принимается из параметра ?token=.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.Abort()
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		actor, err := identity.ParseToken(secret, tokenStr)
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "token rejected", "error", err, "path", c.Request.URL.Path)
			c.Abort()
			apperrors.HandleError(c, apperrors.ErrInvalidToken)
			return
		}

		ctx := identity.WithActor(c.Request.Context(), actor)
		ctx = logger.WithUserID(ctx, actor.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("userID", actor.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		return token, found && token != ""
	}
	token := c.Query("token")
	return token, token != ""
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	if actor, ok := identity.FromContext(c.Request.Context()); ok {
		return actor.ID
	}
	return ""
}
