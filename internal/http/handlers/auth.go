package handlers

import (
	"net/http"
	"strings"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
	"github.com/arcade-neon/arcade-neon-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type authRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// Auth mints a guest identity. A real identity provider sits in front of
// this in production; the room protocol only needs a uid and a display
// name to exist before create/join.
func (h *Handler) Auth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "display_name required"})
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if name == "" || len(name) > 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "display_name must be 1-32 characters"})
		return
	}

	id := domain.Identity{
		UID:         uuid.NewString(),
		DisplayName: name,
	}

	token, err := service.GenerateJWT(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"uid":   id.UID,
	})
}
