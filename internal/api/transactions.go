package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"time"     // Cache TTLs

	"zeroverse/internal/domain"     // Importing domain models
	"zeroverse/internal/ledger"     // Reward ledger
	"zeroverse/internal/middleware" // Session helpers
	"zeroverse/internal/utils"      // Cache utilities

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// GetMeHandler returns the authenticated user's record. Cached for a minute;
// every mutation invalidates the cache entry.
func GetMeHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		tgID := middleware.SessionTgID(c) // Telegram ID from the validated session
		if tgID == 0 {
			// No validated session on the request
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := context.Background()          // Context for Redis operations
		cacheKey := utils.UserCacheKey(tgID) // Cache key for the user record
		var user domain.User
		found, err := utils.GetCache(ctx, rdb, cacheKey, &user) // Try to get from cache
		if err == nil && found {
			// Return cached user
			c.JSON(http.StatusOK, gin.H{"ok": true, "user": user, "cached": true})
			return
		}
		// If not in cache, fetch from DB
		fresh, err := ledger.GetUser(db, tgID)
		if err != nil {
			failLedger(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, fresh, 60*time.Second)            // Cache the user for 60 seconds
		c.JSON(http.StatusOK, gin.H{"ok": true, "user": fresh, "cached": false}) // Return the user record
	}
}

// GetTransactionsHandler returns the authenticated user's ledger, newest
// first, paginated. This is the client's reconciliation fetch after a reward
// operation, so pages are cached briefly and invalidated on every mutation.
func GetTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		tgID := middleware.SessionTgID(c) // Telegram ID from the validated session
		if tgID == 0 {
			// No validated session on the request
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		page, pageSize := pageParams(c)                           // Pagination parameters
		cacheKey := utils.TxHistoryCacheKey(tgID, page, pageSize) // Redis cache key
		ctx := context.Background()                               // Context for Redis operations
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"ok":           true,
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		// Fetch one page from the ledger
		txs, total, err := ledger.ListTransactions(db, tgID, page, pageSize)
		if err != nil {
			// If fetching fails, return error
			fail(c, http.StatusInternalServerError, "Failed to fetch transactions")
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"ok":           true,
			"transactions": txs,        // List of transactions
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Not from cache
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return the ledger page
	}
}
