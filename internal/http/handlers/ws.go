package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"
	"github.com/arcade-neon/arcade-neon-sub000/internal/service"
	"github.com/arcade-neon/arcade-neon-sub000/internal/ws"
)

// WS upgrades the connection and attaches it to a room's change feed.
// Browsers cannot set headers on websocket dials, so the token rides in the
// query string.
func (h *Handler) WS(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		id, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		code := c.Query("room")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room required"})
			return
		}

		allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return
		}

		// the request context dies when this handler returns, so the
		// client runs on its own lifetime
		client := ws.NewClient(id, code, conn, hub)
		go client.Run(context.Background())
	}
}
