package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes

	"zeroverse/internal/ledger" // Reward ledger
	"zeroverse/internal/utils"  // Cache utilities

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// ConvertRequest represents a point-to-ZRC conversion
type ConvertRequest struct {
	TgID            int64 `json:"tg_id" binding:"required"`           // Target user
	PointsToConvert int64 `json:"pointsToConvert" binding:"required"` // Points to exchange
}

// ConvertToZrcHandler exchanges points for ZRC at the fixed 200:1 rate.
// The debit, the credit and the ledger append run in one DB transaction and
// the debit is guarded by the current balance.
func ConvertToZrcHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConvertRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Missing fields")
			return
		}
		// The session must belong to the user converting
		if !requireOwnTgID(c, req.TgID) {
			return
		}
		user, zrc, err := ledger.ConvertPoints(db, req.TgID, req.PointsToConvert)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"tg_id":  req.TgID,            // Target user
				"points": req.PointsToConvert, // Requested conversion
				"error":  err.Error(),         // Error message
			}).Warn("Conversion rejected") // Log the rejection
			failLedger(c, err)
			return
		}
		// Log the conversion
		logrus.WithFields(logrus.Fields{
			"tg_id":  req.TgID,            // Target user
			"points": req.PointsToConvert, // Points debited
			"zrc":    zrc,                 // ZRC credited
		}).Info("Points converted") // Log success
		utils.InvalidateUserCache(context.Background(), rdb, req.TgID) // Drop stale cache
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"message":  "Conversion successful",
			"user":     user, // The updated user record
			"addedZRC": zrc,  // ZRC credited by this call
		})
	}
}

// WithdrawRequestBody represents a ZRC withdrawal request
type WithdrawRequestBody struct {
	TgID      int64   `json:"tg_id" binding:"required"`     // Target user
	ZrcAmount float64 `json:"zrcAmount" binding:"required"` // ZRC to withdraw
}

// CreateWithdrawRequestHandler debits the ZRC balance and records a pending
// withdrawal. Note the debit is eager: it happens at request time, before any
// approval step, which mirrors the product's current behavior.
func CreateWithdrawRequestHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WithdrawRequestBody // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Missing fields")
			return
		}
		// The session must belong to the user withdrawing
		if !requireOwnTgID(c, req.TgID) {
			return
		}
		user, request, err := ledger.CreateWithdrawRequest(db, req.TgID, req.ZrcAmount)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"tg_id":  req.TgID,      // Target user
				"amount": req.ZrcAmount, // Requested withdrawal
				"error":  err.Error(),   // Error message
			}).Warn("Withdrawal rejected") // Log the rejection
			failLedger(c, err)
			return
		}
		// Log the request
		logrus.WithFields(logrus.Fields{
			"tg_id":      req.TgID,      // Target user
			"amount":     req.ZrcAmount, // ZRC debited
			"request_id": request.ID,    // Withdrawal request row
		}).Info("Withdrawal requested") // Log success
		utils.InvalidateUserCache(context.Background(), rdb, req.TgID) // Drop stale cache
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"message": "Withdrawal request submitted",
			"user":    user,    // The updated user record
			"request": request, // The pending withdrawal
		})
	}
}

// LinkWalletRequest carries the TON wallet address to attach
type LinkWalletRequest struct {
	TgID          int64  `json:"tg_id" binding:"required"`         // Target user
	WalletAddress string `json:"walletAddress" binding:"required"` // TON wallet address
}

// LinkWalletHandler stores the user's TON wallet address and logs a
// wallet_link entry so the linkage appears in the activity feed.
func LinkWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LinkWalletRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Missing fields")
			return
		}
		// The session must belong to the user linking
		if !requireOwnTgID(c, req.TgID) {
			return
		}
		user, err := ledger.LinkWallet(db, req.TgID, req.WalletAddress)
		if err != nil {
			failLedger(c, err)
			return
		}
		// Log the linkage
		logrus.WithFields(logrus.Fields{
			"tg_id":  req.TgID,          // Target user
			"wallet": req.WalletAddress, // Linked address
		}).Info("TON wallet linked") // Log success
		utils.InvalidateUserCache(context.Background(), rdb, req.TgID) // Drop stale cache
		c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})         // Return the updated user
	}
}
