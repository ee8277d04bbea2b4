package main

import (
	"context"                       // context package is needed for Redis operations
	"log"                           // log package is needed for logging
	"zeroverse/internal/api"        // Custom package for API handlers
	"zeroverse/internal/config"     // Custom package for configuration
	"zeroverse/internal/db"         // Custom package for migrations
	"zeroverse/internal/middleware" // Custom package for middleware

	"github.com/gin-contrib/cors"  // CORS middleware for the Mini App origin
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Fail closed on missing configuration: without the bot token and DB
	// coordinates no handler can verify or persist anything.
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Connect to the database
	gormDB, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	// Keep the schema current
	if err := db.AutoMigrate(gormDB); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default()              // Gin router instance
	r.HandleMethodNotAllowed = true // Wrong method gets 405 + Allow, not 404

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// The Mini App frontend is served from its own origin
	corsCfg := cors.DefaultConfig()
	if cfg.CORSOrigin != "" {
		corsCfg.AllowOrigins = []string{cfg.CORSOrigin}
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	// Auth route: verifies Telegram initData and mints the session token
	r.POST("/telegram", api.TelegramAuthHandler(gormDB, redisClient, cfg.BotToken, cfg.JWTSecret))

	// Reward routes (protected by the session token)
	rewardGroup := r.Group("/")
	rewardGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	rewardGroup.POST("/gameReward", api.GameRewardHandler(gormDB, redisClient))                       // Game reward endpoint
	rewardGroup.POST("/taskReward", api.TaskRewardHandler(gormDB, redisClient))                       // Task reward endpoint
	rewardGroup.POST("/referralReward", api.ReferralRewardHandler(gormDB, redisClient))               // Referral reward endpoint
	rewardGroup.POST("/convertToZrc", api.ConvertToZrcHandler(gormDB, redisClient))                   // Point conversion endpoint
	rewardGroup.POST("/createWithdrawRequest", api.CreateWithdrawRequestHandler(gormDB, redisClient)) // Withdrawal request endpoint
	rewardGroup.POST("/updatePoints", api.UpdatePointsHandler(gormDB, redisClient))                   // Raw point update endpoint
	rewardGroup.POST("/addTransaction", api.AddTransactionHandler(gormDB, redisClient))               // Raw ledger append endpoint
	rewardGroup.POST("/linkWallet", api.LinkWalletHandler(gormDB, redisClient))                       // TON wallet link endpoint
	rewardGroup.GET("/me", api.GetMeHandler(gormDB, redisClient))                                     // Current user endpoint
	rewardGroup.GET("/transactions", api.GetTransactionsHandler(gormDB, redisClient))                 // Ledger history endpoint

	// Admin routes (protected, operators only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(cfg.AdminTgIDs))
	adminGroup.GET("/withdrawRequests", api.ListWithdrawRequestsHandler(gormDB)) // Withdrawal listing endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
