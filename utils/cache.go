// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"ridelink/config"
)

var (
	// CacheClient is the generic cache client.
	CacheClient *redis.Client
	// OfferClient is the dedicated client for ephemeral dispatch offers.
	OfferClient *redis.Client
)

// InitCache initializes the generic Redis cache client (using DB from AppConfig for general caching).
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := CacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitOfferCache initializes the Redis client holding dispatch offers.
func InitOfferCache() {
	OfferClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisOfferDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := OfferClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Offers): %v", err)
	}
}

// GetOfferClient returns the Redis client for dispatch offers.
func GetOfferClient() *redis.Client {
	if OfferClient == nil {
		InitOfferCache()
	}
	return OfferClient
}
