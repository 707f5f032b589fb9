// Package respond maps categorized errors onto HTTP responses so the
// controllers agree on status codes.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autoattend/apperr"
)

// Error writes err as a JSON error response with the status its category
// maps to. Uncategorized errors become 500s.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if kind, ok := apperr.KindOf(err); ok {
		switch kind {
		case apperr.Input:
			status = http.StatusBadRequest
		case apperr.NotFound:
			status = http.StatusNotFound
		case apperr.Unavailable:
			status = http.StatusServiceUnavailable
		case apperr.Persistence:
			status = http.StatusInternalServerError
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
