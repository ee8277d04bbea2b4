package middleware

import (
	"net/http"                 // HTTP status codes
	"strings"                  // String manipulation
	"zeroverse/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// JWTAuthMiddleware validates session tokens minted by the /telegram endpoint
// and stores the caller's Telegram ID in the request context.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Invalid or expired token"})
			return
		}
		c.Set("tgID", claims.TgID) // Store the Telegram ID in context
		c.Next()                   // Proceed to the next handler
	}
}

// SessionTgID returns the Telegram ID the session token was minted for,
// or 0 when the request carries no validated session.
func SessionTgID(c *gin.Context) int64 {
	tgID, ok := c.Get("tgID")
	if !ok {
		return 0
	}
	id, _ := tgID.(int64)
	return id
}
