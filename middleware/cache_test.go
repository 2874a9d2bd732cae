package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNoCache(t *testing.T) {
	router := gin.New()
	router.Use(NoCache())
	router.GET("/api/contracts", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path     string
		expected string
	}{
		{"/api/contracts", "no-cache, no-store, must-revalidate"},
		{"/health", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			if got := w.Header().Get("Cache-Control"); got != tt.expected {
				t.Errorf("Expected Cache-Control %q, got %q", tt.expected, got)
			}
		})
	}
}
