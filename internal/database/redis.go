package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/motlatsimoea/fnd/internal/config"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

func InitRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	_, err := Redis.Ping(Ctx).Result()
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Caching will be disabled.", err)
		Redis = nil
	} else {
		log.Println("Connected to Redis successfully")
	}
}

// Caching. All helpers are no-ops when Redis is unavailable so callers
// can stay on the database path.

func CacheSet(key string, value interface{}, expiration time.Duration) error {
	if Redis == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(Ctx, key, data, expiration).Err()
}

func CacheGet(key string, dest interface{}) error {
	if Redis == nil {
		return redis.Nil
	}
	val, err := Redis.Get(Ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func CacheDelete(keys ...string) error {
	if Redis == nil || len(keys) == 0 {
		return nil
	}
	return Redis.Del(Ctx, keys...).Err()
}

// UnreadCountKey is the cache key for a user's unread notification count.
func UnreadCountKey(userID uint) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

// InvalidateUnreadCount drops the cached unread count for a user. Called
// whenever a notification is created or marked read.
func InvalidateUnreadCount(userID uint) {
	if err := CacheDelete(UnreadCountKey(userID)); err != nil {
		log.Printf("Warning: failed to invalidate unread count cache: %v", err)
	}
}
