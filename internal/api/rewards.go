package api

import (
	"context"  // Context for Redis operations
	"fmt"      // Reward descriptions
	"net/http" // HTTP status codes

	"zeroverse/internal/domain" // Importing domain models
	"zeroverse/internal/ledger" // Reward ledger
	"zeroverse/internal/utils"  // Cache utilities

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// GameRewardRequest represents a game-over reward submission
type GameRewardRequest struct {
	TgID   int64 `json:"tg_id" binding:"required"`       // Target user
	Points int64 `json:"points" binding:"required,gt=0"` // Points earned in the game
}

// GameRewardHandler credits points earned in a mini-game and logs a game
// transaction. The credit and the ledger append share one DB transaction.
func GameRewardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GameRewardRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Missing fields")
			return
		}
		// The session must belong to the user being credited
		if !requireOwnTgID(c, req.TgID) {
			return
		}
		description := fmt.Sprintf("Game reward: +%d", req.Points)
		user, err := ledger.CreditPoints(db, req.TgID, req.Points, domain.TxTypeGame, description)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"tg_id":  req.TgID,    // Target user
				"points": req.Points,  // Requested credit
				"error":  err.Error(), // Error message
			}).Warn("Game reward rejected") // Log the rejection
			failLedger(c, err)
			return
		}
		// Log successful credit
		logrus.WithFields(logrus.Fields{
			"tg_id":  req.TgID,          // Target user
			"points": req.Points,        // Credited points
			"type":   domain.TxTypeGame, // Transaction type
		}).Info("Points credited") // Log credit
		utils.InvalidateUserCache(context.Background(), rdb, req.TgID) // Drop stale cache
		c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})         // Return the updated user
	}
}

// TaskRewardRequest represents a completed-task reward submission
type TaskRewardRequest struct {
	TgID            int64  `json:"tg_id" binding:"required"`           // Target user
	Reward          int64  `json:"reward" binding:"required,gt=0"`     // Points the task pays
	TaskDescription string `json:"taskDescription" binding:"required"` // Which task was completed
}

// TaskRewardHandler credits points for a completed task and logs a task
// transaction carrying the caller-supplied description.
func TaskRewardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TaskRewardRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Missing fields")
			return
		}
		// The session must belong to the user being credited
		if !requireOwnTgID(c, req.TgID) {
			return
		}
		user, err := ledger.CreditPoints(db, req.TgID, req.Reward, domain.TxTypeTask, req.TaskDescription)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"tg_id":  req.TgID,    // Target user
				"reward": req.Reward,  // Requested credit
				"error":  err.Error(), // Error message
			}).Warn("Task reward rejected") // Log the rejection
			failLedger(c, err)
			return
		}
		// Log successful credit
		logrus.WithFields(logrus.Fields{
			"tg_id":  req.TgID,          // Target user
			"reward": req.Reward,        // Credited points
			"type":   domain.TxTypeTask, // Transaction type
		}).Info("Points credited") // Log credit
		utils.InvalidateUserCache(context.Background(), rdb, req.TgID) // Drop stale cache
		c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})         // Return the updated user
	}
}

// ReferralRewardRequest carries both sides of a referral
type ReferralRewardRequest struct {
	NewUserTgID  int64 `json:"newUserTgId" binding:"required"`  // The freshly joined user
	ReferrerTgID int64 `json:"referrerTgId" binding:"required"` // Who invited them
}

// ReferralRewardHandler applies the one-time referral bonus to both sides.
// Self-referral is rejected; a repeated call for the same new user is answered
// with success-with-message and credits nothing.
func ReferralRewardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReferralRewardRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Missing fields")
			return
		}
		// Only the new user's own session may claim their referral
		if !requireOwnTgID(c, req.NewUserTgID) {
			return
		}
		alreadyRewarded, err := ledger.ReferralReward(db, req.NewUserTgID, req.ReferrerTgID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"new_user_tg_id": req.NewUserTgID,  // The freshly joined user
				"referrer_tg_id": req.ReferrerTgID, // Who invited them
				"error":          err.Error(),      // Error message
			}).Warn("Referral reward rejected") // Log the rejection
			failLedger(c, err)
			return
		}
		if alreadyRewarded {
			// Duplicate call: business-rule no-op, reported as success
			c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Referral already rewarded"})
			return
		}
		// Log the reward
		logrus.WithFields(logrus.Fields{
			"new_user_tg_id": req.NewUserTgID,      // The freshly joined user
			"referrer_tg_id": req.ReferrerTgID,     // Who invited them
			"bonus":          ledger.ReferralBonus, // Points granted to each side
		}).Info("Referral reward applied") // Log success
		// Both balances changed, drop both cache entries
		utils.InvalidateUserCache(context.Background(), rdb, req.NewUserTgID)
		utils.InvalidateUserCache(context.Background(), rdb, req.ReferrerTgID)
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Referral reward applied"})
	}
}

// UpdatePointsRequest carries a raw point delta
type UpdatePointsRequest struct {
	TgID      int64 `json:"tg_id" binding:"required"` // Target user
	NewPoints int64 `json:"newPoints"`                // Delta added to the balance
}

// UpdatePointsHandler increments the point balance by the supplied delta.
// No ledger row is appended; the client uses this for incremental saves that
// are logged separately through /addTransaction.
func UpdatePointsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdatePointsRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || req.NewPoints <= 0 {
			// If binding fails or the delta is not positive, return bad request
			fail(c, http.StatusBadRequest, "Missing fields")
			return
		}
		// The session must belong to the user being credited
		if !requireOwnTgID(c, req.TgID) {
			return
		}
		user, err := ledger.GetUser(db, req.TgID)
		if err != nil {
			failLedger(c, err)
			return
		}
		// Atomic increment, not read-then-write
		if err := db.Model(user).Update("zero_points", gorm.Expr("zero_points + ?", req.NewPoints)).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"tg_id": req.TgID,    // Target user
				"error": err.Error(), // Error message
			}).Error("Point update failed") // Log the failure
			fail(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		user, err = ledger.GetUser(db, req.TgID) // Reload the updated record
		if err != nil {
			failLedger(c, err)
			return
		}
		utils.InvalidateUserCache(context.Background(), rdb, req.TgID) // Drop stale cache
		c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})         // Return the updated user
	}
}

// AddTransactionRequest appends a raw ledger row
type AddTransactionRequest struct {
	UserID      int64   `json:"user_id" binding:"required"` // Telegram ID of the owning user
	Type        string  `json:"type" binding:"required"`    // Transaction type
	Description string  `json:"description"`                // Human-readable description
	Amount      float64 `json:"amount" binding:"required"`  // Signed amount
}

// AddTransactionHandler appends a transaction row without touching a balance.
// The type must be one of the known ledger kinds.
func AddTransactionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	validTypes := map[string]struct{}{
		domain.TxTypeGame:            {},
		domain.TxTypeTask:            {},
		domain.TxTypeReferral:        {},
		domain.TxTypeZrcConversion:   {},
		domain.TxTypeWithdrawRequest: {},
		domain.TxTypeWalletLink:      {},
	}
	return func(c *gin.Context) {
		var req AddTransactionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Missing required fields: user_id, type, amount")
			return
		}
		// Reject unknown transaction kinds
		if _, ok := validTypes[req.Type]; !ok {
			fail(c, http.StatusBadRequest, "Unknown transaction type")
			return
		}
		// The session must belong to the owning user
		if !requireOwnTgID(c, req.UserID) {
			return
		}
		tx, err := ledger.AppendTransaction(db, req.UserID, req.Type, req.Description, req.Amount)
		if err != nil {
			failLedger(c, err)
			return
		}
		utils.InvalidateUserCache(context.Background(), rdb, req.UserID) // Drop stale ledger pages
		c.JSON(http.StatusOK, gin.H{"ok": true, "transaction": tx})      // Return the created row
	}
}
