package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeUserID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "user-123", "user-123"},
		{"trimmed", "  user-123  ", "user-123"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"too long", strings.Repeat("a", MaxUserIDLength+1), ""},
		{"max length ok", strings.Repeat("a", MaxUserIDLength), strings.Repeat("a", MaxUserIDLength)},
		{"null byte", "user\x00id", ""},
		{"newline", "user\nid", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeUserID(tc.in))
		})
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestSizeMiddleware(64))
	router.POST("/echo", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.Status(http.StatusOK)
	})

	small := httptest.NewRecorder()
	router.ServeHTTP(small, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("ok")))
	assert.Equal(t, http.StatusOK, small.Code)

	big := httptest.NewRecorder()
	router.ServeHTTP(big, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 128))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, big.Code)
}
