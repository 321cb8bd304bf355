package config

import (
	"os"
	"strconv"
	"time"

	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	// Redis is optional. When set it backs both the match document store
	// and the rate limiter; when empty an in-memory store is used.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Room settings
	RoomCodeLength int

	// MatchIdleTimeout resolves a playing match as abandoned after this
	// long without a write. Zero disables the sweep: there is no agreed
	// product value for it yet.
	MatchIdleTimeout time.Duration

	// API rate limits
	APIRateLimit  int
	APIRateWindow time.Duration
}

// Load reads configuration from env
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	codeLength := 4
	if v := os.Getenv("ROOM_CODE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 4 && n <= 8 {
			codeLength = n
		}
	}

	var idleTimeout time.Duration
	if v := os.Getenv("MATCH_IDLE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			idleTimeout = time.Duration(n) * time.Second
		}
	}

	apiRateLimit := 60
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			apiRateLimit = n
		}
	}

	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}

	return &Config{
		AppPort:          port,
		DatabaseURL:      dbURL,
		JWTSecret:        jwtSecret,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
		RoomCodeLength:   codeLength,
		MatchIdleTimeout: idleTimeout,
		APIRateLimit:     apiRateLimit,
		APIRateWindow:    apiRateWindow,
	}
}
