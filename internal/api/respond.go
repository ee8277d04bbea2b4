package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"zeroverse/internal/ledger" // Reward ledger errors

	"github.com/gin-gonic/gin" // Gin web framework
)

// fail writes the error envelope every endpoint shares
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"ok": false, "error": msg})
}

// failLedger maps a ledger error onto the right HTTP status and envelope.
// Business-rule rejections stay 400, unknown users are 404, anything else is
// an opaque 500 (the caller is expected to have logged the details).
func failLedger(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound), errors.Is(err, ledger.ErrReferrerNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSelfReferral),
		errors.Is(err, ledger.ErrInsufficientPoints),
		errors.Is(err, ledger.ErrInsufficientZRC):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

// requireOwnTgID rejects a request whose body names a different user than the
// session token was minted for. Keeps one authenticated client from crediting
// or debiting somebody else's balance.
func requireOwnTgID(c *gin.Context, tgID int64) bool {
	session, ok := c.Get("tgID")
	if !ok {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	if id, _ := session.(int64); id != tgID {
		fail(c, http.StatusForbidden, "tg_id does not match the session")
		return false
	}
	return true
}

// pageParams reads page/page_size query parameters with the usual bounds
func pageParams(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page
	pageSize = 20 // Default page size
	// If page exists in query
	if p := c.Query("page"); p != "" {
		// Convert page to integer
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// If page_size exists in query
	if ps := c.Query("page_size"); ps != "" {
		// Convert page_size to integer
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}
