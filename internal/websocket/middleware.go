package websocket

import (
	"net/http"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionKey gin context key holding the validated session ID
const SessionKey = "session_id"

// SessionMiddleware requires a UUID in the "session" query parameter.
// The browser generates it once and sends the same value with each analysis request.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("session")
		id, err := uuid.Parse(raw)
		if err != nil {
			logger.FromGin(c).Debug().Str("session", raw).Msg("Sessão WebSocket inválida")
			c.AbortWithStatusJSON(http.StatusBadRequest, model.ErrorResponse{
				Success: false,
				Error:   "Parâmetro session inválido",
				Details: "session deve ser um UUID",
			})
			return
		}

		c.Set(SessionKey, id.String())
		c.Next()
	}
}
