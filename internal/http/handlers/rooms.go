package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
	"github.com/arcade-neon/arcade-neon-sub000/internal/game"
	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"
	"github.com/arcade-neon/arcade-neon-sub000/internal/match"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	Game string `json:"game" binding:"required"`
}

type moveRequest struct {
	// Version is the document version the client computed its move
	// against. Zero means "act on whatever is latest".
	Version int64           `json:"version"`
	Move    json.RawMessage `json:"move" binding:"required"`
}

// CreateRoom allocates a room code for the caller as host.
func (h *Handler) CreateRoom(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game required"})
		return
	}

	doc, err := h.Matches.CreateRoom(c.Request.Context(), domain.GameType(req.Game), id)
	if err != nil {
		matchError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code": doc.Code,
		"room": doc,
	})
}

// GetRoom returns the current match document snapshot, redacted for the
// caller's seat.
func (h *Handler) GetRoom(c *gin.Context) {
	doc, err := h.Matches.GetRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		matchError(c, err)
		return
	}

	id, _ := identity(c)
	view := h.Matches.View(doc, id.UID)
	c.JSON(http.StatusOK, gin.H{
		"room":    view,
		"version": view.Version,
	})
}

// JoinRoom seats the caller as guest.
func (h *Handler) JoinRoom(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	doc, err := h.Matches.JoinRoom(c.Request.Context(), c.Param("code"), id)
	if err != nil {
		matchError(c, err)
		return
	}

	view := h.Matches.View(doc, id.UID)
	c.JSON(http.StatusOK, gin.H{"room": view, "version": view.Version})
}

// Ready marks the caller ready; the match starts once both players are.
func (h *Handler) Ready(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	doc, err := h.Matches.Ready(c.Request.Context(), c.Param("code"), id.UID)
	if err != nil {
		matchError(c, err)
		return
	}

	view := h.Matches.View(doc, id.UID)
	c.JSON(http.StatusOK, gin.H{"room": view, "version": view.Version})
}

// Move applies one local move through the game's reducer.
func (h *Handler) Move(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "move required"})
		return
	}

	doc, err := h.Matches.Move(c.Request.Context(), c.Param("code"), id.UID, req.Version, req.Move)
	if err != nil {
		matchError(c, err)
		return
	}

	view := h.Matches.View(doc, id.UID)
	c.JSON(http.StatusOK, gin.H{"room": view, "version": view.Version})
}

// Leave removes the caller from the room.
func (h *Handler) Leave(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	doc, err := h.Matches.Leave(c.Request.Context(), c.Param("code"), id.UID)
	if err != nil {
		matchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": h.Matches.View(doc, id.UID)})
}

// Games lists the playable game types.
func (h *Handler) Games(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": h.Matches.GameTypes()})
}

// matchError maps the protocol's typed errors onto HTTP statuses. Nothing
// is swallowed: unexpected errors are logged and become a 500.
func matchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
	case errors.Is(err, match.ErrRoomFull):
		c.JSON(http.StatusConflict, gin.H{"error": "room_full"})
	case errors.Is(err, match.ErrNotInRoom):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_in_room"})
	case errors.Is(err, match.ErrNotYourTurn):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not_your_turn"})
	case errors.Is(err, match.ErrNotStarted):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "match_not_started"})
	case errors.Is(err, match.ErrMatchFinished):
		c.JSON(http.StatusGone, gin.H{"error": "match_finished"})
	case errors.Is(err, match.ErrStaleWrite):
		c.JSON(http.StatusConflict, gin.H{"error": "stale_write"})
	case errors.Is(err, game.ErrUnknownGame):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_game"})
	case errors.Is(err, game.ErrInvalidMove):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_move", "detail": err.Error()})
	default:
		logger.Error("room request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
