package utils

import (
	"context"
	"log"
	"time"

	"salonflow/config"

	"github.com/go-redis/redis/v8"
)

var (
	// DraftCacheClient holds pending drafts until they are promoted or expire.
	DraftCacheClient *redis.Client
	// VerifyCacheClient holds in-flight verification requests.
	VerifyCacheClient *redis.Client
	// LockCacheClient backs the promotion guard (SETNX locks).
	LockCacheClient *redis.Client
)

func newRedisClient(db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (db %d): %v", db, err)
	}
	return client
}

// InitRedis initializes all Redis clients used by the booking flow.
func InitRedis() {
	DraftCacheClient = newRedisClient(config.AppConfig.RedisDraftDB)
	VerifyCacheClient = newRedisClient(config.AppConfig.RedisVerifyDB)
	LockCacheClient = newRedisClient(config.AppConfig.RedisLockDB)
}

// GetDraftCacheClient returns the client holding pending drafts.
func GetDraftCacheClient() *redis.Client {
	if DraftCacheClient == nil {
		DraftCacheClient = newRedisClient(config.AppConfig.RedisDraftDB)
	}
	return DraftCacheClient
}

// GetVerifyCacheClient returns the client holding verification requests.
func GetVerifyCacheClient() *redis.Client {
	if VerifyCacheClient == nil {
		VerifyCacheClient = newRedisClient(config.AppConfig.RedisVerifyDB)
	}
	return VerifyCacheClient
}

// GetLockCacheClient returns the client backing promotion locks.
func GetLockCacheClient() *redis.Client {
	if LockCacheClient == nil {
		LockCacheClient = newRedisClient(config.AppConfig.RedisLockDB)
	}
	return LockCacheClient
}
