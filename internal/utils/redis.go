package utils

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"field-geo/internal/logger"
)

// OpenRedisFromEnv returns a client for REDIS_HOST:REDIS_PORT with
// REDIS_PASS and REDIS_DB, or nil when REDIS_ENABLED is off. An unparsable
// REDIS_DB falls back to 0.
func OpenRedisFromEnv() *redis.Client {
	if !EnvBool("REDIS_ENABLED", false) {
		return nil
	}
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	addr := host + ":" + port
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
}
