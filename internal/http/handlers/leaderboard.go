package handlers

import (
	"net/http"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"
	"github.com/arcade-neon/arcade-neon-sub000/internal/repository"

	"github.com/gin-gonic/gin"
)

type submitScoreRequest struct {
	Score      int64 `json:"score"`
	DurationMS int64 `json:"duration_ms"`
}

// GetLeaderboard returns the top entries for one game. Time-ranked games
// sort ascending on duration via ?order=time.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	gameType := domain.GameType(c.Param("game"))

	order := domain.RankByScore
	if c.Query("order") == "time" {
		order = domain.RankByTime
	}

	top, err := h.LeaderboardRepo.Top(c.Request.Context(), gameType, order, repository.TopLimit)
	if err != nil {
		// The arcade keeps working when the leaderboard does not; log it
		// instead of failing the page.
		logger.Error("leaderboard read failed", "game", gameType, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game":        gameType,
		"leaderboard": top,
	})
}

// SubmitScore appends one entry for the authenticated player.
func (h *Handler) SubmitScore(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req submitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.Score < 0 || req.DurationMS < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score and duration_ms must be non-negative"})
		return
	}

	entry := &domain.LeaderboardEntry{
		UID:         id.UID,
		DisplayName: id.DisplayName,
		GameType:    domain.GameType(c.Param("game")),
		Score:       req.Score,
		DurationMS:  req.DurationMS,
	}

	if err := h.LeaderboardRepo.Submit(c.Request.Context(), entry); err != nil {
		logger.Error("score submit failed", "game", entry.GameType, "uid", id.UID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit score"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// MyMatches lists the caller's archived matches.
func (h *Handler) MyMatches(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	matches, err := h.MatchRepo.ByPlayer(c.Request.Context(), id.UID, 20)
	if err != nil {
		logger.Error("match history read failed", "uid", id.UID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
