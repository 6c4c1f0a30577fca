package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FintechGT/empeno-backend/internal/auth"
)

func authRouter(jwt *auth.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireAuth(jwt), func(c *gin.Context) {
		actor := Actor(c)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": actor.Role})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	jwt := auth.NewJWTManager("issuer", "aud", "secret")
	r := authRouter(jwt)

	tok, err := jwt.Mint("user-1", auth.RoleStaff, 5*time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuthRejects(t *testing.T) {
	jwt := auth.NewJWTManager("issuer", "aud", "secret")
	r := authRouter(jwt)

	stale, err := jwt.Mint("user-1", auth.RoleStaff, -time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	foreign, err := auth.NewJWTManager("issuer", "aud", "other-secret").Mint("user-1", auth.RoleStaff, 5*time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Basic abc"},
		{"expired token", "Bearer " + stale},
		{"wrong key", "Bearer " + foreign},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}
