package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arcade-neon/arcade-neon-sub000/internal/config"
	"github.com/arcade-neon/arcade-neon-sub000/internal/http/handlers"
	"github.com/arcade-neon/arcade-neon-sub000/internal/http/middleware"
	"github.com/arcade-neon/arcade-neon-sub000/internal/match"
	"github.com/arcade-neon/arcade-neon-sub000/internal/ws"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, matches *match.Manager, cfg *config.Config, version string) *ws.Hub {
	h := handlers.NewHandler(db, matches)
	healthHandler := handlers.NewHealthHandler(db, version)

	// Health checks and metrics stay outside the rate limiter
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	v1.POST("/auth", h.Auth)
	v1.GET("/games", h.Games)

	rooms := v1.Group("/rooms")
	rooms.Use(middleware.JWT())
	{
		rooms.POST("", h.CreateRoom)
		rooms.GET("/:code", h.GetRoom)
		rooms.POST("/:code/join", h.JoinRoom)
		rooms.POST("/:code/ready", h.Ready)
		rooms.POST("/:code/move", h.Move)
		rooms.POST("/:code/leave", h.Leave)
	}

	v1.GET("/leaderboard/:game", h.GetLeaderboard)
	v1.POST("/leaderboard/:game", middleware.JWT(), h.SubmitScore)
	v1.GET("/me/matches", middleware.JWT(), h.MyMatches)

	// Change feed attaches outside the API group; websocket dials carry
	// the token in the query, not in a header
	hub := ws.NewHub(matches)
	r.GET("/ws", h.WS(hub))

	return hub
}
