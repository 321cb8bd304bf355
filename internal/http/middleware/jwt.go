package middleware

import (
	"net/http"
	"strings"

	"github.com/arcade-neon/arcade-neon-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// JWT validates the bearer token and stores the player identity in the
// request context under "uid" / "name".
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		id, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("uid", id.UID)
		c.Set("name", id.DisplayName)
		c.Next()
	}
}
