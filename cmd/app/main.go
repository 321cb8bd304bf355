package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/arcade-neon/arcade-neon-sub000/internal/config"
	"github.com/arcade-neon/arcade-neon-sub000/internal/db"
	"github.com/arcade-neon/arcade-neon-sub000/internal/docstore"
	"github.com/arcade-neon/arcade-neon-sub000/internal/game"
	httpServer "github.com/arcade-neon/arcade-neon-sub000/internal/http"
	"github.com/arcade-neon/arcade-neon-sub000/internal/http/middleware"
	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"
	"github.com/arcade-neon/arcade-neon-sub000/internal/match"
	"github.com/arcade-neon/arcade-neon-sub000/internal/repository"
	"github.com/arcade-neon/arcade-neon-sub000/internal/service"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	// Redis carries both the rate limiter and, when configured, the room
	// document store. Without it rooms live in process memory and the
	// limiter falls back to its in-memory window.
	var store docstore.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = docstore.NewRedisStore(rdb)
		logger.Info("room store: redis", "addr", cfg.RedisAddr)
	} else {
		store = docstore.NewMemoryStore()
		logger.Info("room store: memory")
	}
	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	matchRepo := repository.NewMatchRepository(dbPool)
	matches := match.NewManager(store, game.NewRegistry(),
		match.WithArchiver(matchRepo),
		match.WithCodeLength(cfg.RoomCodeLength),
		match.WithIdleTimeout(cfg.MatchIdleTimeout),
	)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	matches.StartSweeper(sweepCtx)

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	hub := httpServer.RegisterRoutes(r, dbPool, matches, cfg, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	hub.Shutdown()
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
