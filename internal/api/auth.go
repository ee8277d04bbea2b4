package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"time"     // Streak timestamps

	"zeroverse/internal/ledger"   // Reward ledger
	"zeroverse/internal/telegram" // initData verification
	"zeroverse/internal/utils"    // JWT and cache utilities

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// TelegramAuthRequest carries the raw init payload from the Mini App
type TelegramAuthRequest struct {
	InitData string `json:"initData" binding:"required"` // Raw Telegram initData query string
}

// TelegramAuthHandler verifies a Telegram initData signature, resolves or
// creates the user record, applies the daily login streak and returns the user
// together with the referral start parameter and a session token. Profile
// fields are refreshed on every login; balances are never touched here.
func TelegramAuthHandler(db *gorm.DB, rdb *redis.Client, botToken, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TelegramAuthRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Missing initData")
			return
		}
		// Verify the signature before trusting anything in the payload
		data, err := telegram.VerifyInitData(req.InitData, botToken)
		if err != nil {
			// Malformed payloads are a client error, everything else is an auth failure
			if errors.Is(err, telegram.ErrMalformedInitData) ||
				errors.Is(err, telegram.ErrMissingHash) ||
				errors.Is(err, telegram.ErrMissingUser) {
				fail(c, http.StatusBadRequest, err.Error())
				return
			}
			fail(c, http.StatusUnauthorized, "Invalid initData signature")
			return
		}
		// Resolve or create the user record
		user, created, err := ledger.ResolveUser(db, ledger.Profile{
			TgID:     data.User.ID,
			Name:     data.User.FullName(),
			Username: data.User.Username,
			PhotoURL: data.User.PhotoURL,
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"tg_id": data.User.ID, // Telegram user ID
				"error": err.Error(),  // Error message
			}).Error("User resolution failed") // Log resolution failure
			fail(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		// Count this session toward the login streak
		if err := ledger.ApplyLoginStreak(db, user, time.Now()); err != nil {
			logrus.WithFields(logrus.Fields{
				"tg_id": user.TgID,   // Telegram user ID
				"error": err.Error(), // Error message
			}).Error("Streak update failed") // Log streak failure
			fail(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		// Mint the session token
		token, err := utils.GenerateJWT(user.TgID, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			fail(c, http.StatusInternalServerError, "Failed to generate token")
			return
		}
		// Log the session start
		logrus.WithFields(logrus.Fields{
			"tg_id":   user.TgID,          // Telegram user ID
			"created": created,            // Whether the user row is new
			"streak":  user.CurrentStreak, // Current login streak
			"start":   data.StartParam,    // Referral start parameter, if any
		}).Info("Telegram login") // Log login
		// Profile or streak fields changed, so drop the cached record
		utils.InvalidateUserCache(context.Background(), rdb, user.TgID)
		// Return the resolved user, the referral parameter and the session token
		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"appUser":    user,            // The resolved user record
			"startParam": data.StartParam, // For the client to trigger /referralReward
			"token":      token,           // Bearer token for the reward routes
		})
	}
}
