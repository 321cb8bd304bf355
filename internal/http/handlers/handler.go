package handlers

import (
	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
	"github.com/arcade-neon/arcade-neon-sub000/internal/match"
	"github.com/arcade-neon/arcade-neon-sub000/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	DB              *pgxpool.Pool
	Matches         *match.Manager
	LeaderboardRepo *repository.LeaderboardRepository
	MatchRepo       *repository.MatchRepository
}

func NewHandler(db *pgxpool.Pool, matches *match.Manager) *Handler {
	return &Handler{
		DB:              db,
		Matches:         matches,
		LeaderboardRepo: repository.NewLeaderboardRepository(db),
		MatchRepo:       repository.NewMatchRepository(db),
	}
}

// identity pulls the player identity the JWT middleware stored.
func identity(c *gin.Context) (domain.Identity, bool) {
	uid, ok := c.Get("uid")
	if !ok {
		return domain.Identity{}, false
	}
	uidStr, ok := uid.(string)
	if !ok || uidStr == "" {
		return domain.Identity{}, false
	}
	name, _ := c.Get("name")
	nameStr, _ := name.(string)
	return domain.Identity{UID: uidStr, DisplayName: nameStr}, true
}
