// Package validation provides input validation middleware for the HTTP API.
package validation

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB). Fingerprints carry
// font and plugin lists but a legitimate snapshot is a few KB.
const MaxRequestSize = 1 << 20

// MaxUserIDLength bounds the user identifier in paths and payloads.
const MaxUserIDLength = 128

// RequestSizeMiddleware limits request body size.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// SanitizeUserID trims and bounds a user identifier. Returns "" when the
// identifier is unusable.
func SanitizeUserID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxUserIDLength {
		return ""
	}
	if strings.ContainsAny(id, "\x00\n\r") {
		return ""
	}
	return id
}
