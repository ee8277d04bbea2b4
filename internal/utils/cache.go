package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Key building
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache key builders. All reward-ledger caching is keyed by the Telegram ID.

// UserCacheKey is the cache key for a user record
func UserCacheKey(tgID int64) string {
	return "user:tg:" + strconv.FormatInt(tgID, 10)
}

// TxHistoryCacheKey is the cache key for one page of a user's ledger
func TxHistoryCacheKey(tgID int64, page, pageSize int) string {
	return "txhistory:tg:" + strconv.FormatInt(tgID, 10) +
		":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client reports a miss, which disables caching entirely (tests).
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// InvalidateUserCache drops the cached user record and the first few pages of
// the cached ledger after any mutation for that user.
func InvalidateUserCache(ctx context.Context, rdb *redis.Client, tgID int64) {
	if rdb == nil {
		return // Caching disabled
	}
	_ = rdb.Del(ctx, UserCacheKey(tgID)).Err() // Invalidate the user record
	// Invalidate paginated ledger cache (simple version: delete first 5 pages)
	for page := 1; page <= 5; page++ {
		_ = rdb.Del(ctx, TxHistoryCacheKey(tgID, page, 20)).Err()
	}
}
