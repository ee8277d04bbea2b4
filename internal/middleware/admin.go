package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnlyMiddleware restricts a route group to a configured allowlist of
// Telegram IDs. There is no role column; operators are named in ADMIN_TG_IDS.
func AdminOnlyMiddleware(adminTgIDs []int64) gin.HandlerFunc {
	allowed := make(map[int64]struct{}, len(adminTgIDs))
	for _, id := range adminTgIDs {
		allowed[id] = struct{}{}
	}
	return func(c *gin.Context) {
		tgID := SessionTgID(c) // Telegram ID from the validated session
		// Check if the caller holds a session at all
		if tgID == 0 {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}
		// Check the allowlist
		if _, ok := allowed[tgID]; !ok {
			// If not an operator, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "Admin access required"})
			return
		}
		// If allowed, proceed to the next handler
		c.Next()
	}
}
