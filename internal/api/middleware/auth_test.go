package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/martijn/harvestd/internal/core/service"
)

func newAuthRouter(tokenService *service.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(tokenService))
	router.GET("/status", func(c *gin.Context) {
		subject := ""
		if claims, ok := GetAuthClaims(c); ok {
			subject = claims.Subject
		}
		c.String(http.StatusOK, subject)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	tokenService := service.NewTokenService("s3cret", "HS256")
	token, err := tokenService.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	router := newAuthRouter(tokenService)

	tests := []struct {
		name           string
		path           string
		header         string
		expectedStatus int
		expectedBody   string
	}{
		{"missing header", "/status", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/status", "Basic " + token, http.StatusUnauthorized, ""},
		{"invalid token", "/status", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid bearer token", "/status", "Bearer " + token, http.StatusOK, "ops"},
		{"token in query for websockets", "/status?token=" + token, "", http.StatusOK, "ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK && w.Body.String() != tt.expectedBody {
				t.Errorf("expected subject %q, got %q", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	router := newAuthRouter(nil)

	req, _ := http.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 without a signing key, got %d", w.Code)
	}
}
