package database

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// Cache key prefixes
	CacheKeySettings  = "hvhosting:settings"
	CacheKeyPlans     = "hvhosting:plans:all"
	CacheKeyBlacklist = "hvhosting:token:blacklist:"

	// Cache TTLs
	CacheTTLSettings = 5 * time.Minute
	CacheTTLPlans    = 2 * time.Minute
)

// CacheGet retrieves a value from Redis cache and unmarshals it into dest
func CacheGet(key string, dest interface{}) error {
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes a key from Redis cache
func CacheDelete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// InvalidatePlansCache clears the cached plan list
func InvalidatePlansCache() {
	CacheDelete(CacheKeyPlans)
}

// InvalidateSettingsCache clears settings cache
func InvalidateSettingsCache() {
	CacheDelete(CacheKeySettings)
}

// BlacklistToken marks a JWT as revoked until it would have expired anyway
func BlacklistToken(token string, ttl time.Duration) error {
	ctx := context.Background()
	return Redis.Set(ctx, CacheKeyBlacklist+token, "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a JWT has been revoked via logout
func IsTokenBlacklisted(token string) bool {
	ctx := context.Background()
	n, err := Redis.Exists(ctx, CacheKeyBlacklist+token).Result()
	return err == nil && n > 0
}
