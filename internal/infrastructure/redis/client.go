package redisinfra

import (
	"github.com/go-identity-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client for the confirmation-code store.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
