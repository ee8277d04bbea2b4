package api

import (
	"net/http" // HTTP status codes

	"zeroverse/internal/ledger" // Reward ledger

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ListWithdrawRequestsHandler returns withdrawal requests for operators,
// newest first, optionally filtered by status. There is no fulfillment
// workflow yet, so this listing is the whole operator surface.
func ListWithdrawRequestsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c) // Pagination parameters
		status := c.Query("status")     // Optional status filter
		requests, total, err := ledger.ListWithdrawRequests(db, status, page, pageSize)
		if err != nil {
			// If fetching fails, return error
			fail(c, http.StatusInternalServerError, "Failed to fetch withdraw requests")
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"requests":    requests,   // List of withdrawal requests
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total requests
			"total_pages": totalPages, // Total pages
		})
	}
}
