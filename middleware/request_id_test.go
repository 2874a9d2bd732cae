package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/contracts/:id", func(c *gin.Context) {
		fromCtx, _ := c.Request.Context().Value(logger.RequestIDKey).(string)
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c), "ctx": fromCtx})
	})

	tests := []struct {
		name     string
		header   string
		keepsOwn bool
	}{
		{"generated when missing", "", false},
		{"client id kept", "existing-request-id-123", true},
		{"space rejected", "has space", false},
		{"too long rejected", strings.Repeat("x", 65), false},
		{"tab rejected", "tab\tinside", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/contracts/c-1", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if got == "" {
				t.Fatal("Expected X-Request-ID header to be set")
			}
			if tt.keepsOwn != (got == tt.header) {
				t.Errorf("Header %q produced request ID %q", tt.header, got)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if body["request_id"] != got || body["ctx"] != got {
				t.Errorf("Expected gin and request context to carry %q, got %v", got, body)
			}
		})
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if id := GetRequestID(c); id != "" {
		t.Errorf("Expected empty string, got '%s'", id)
	}
}
