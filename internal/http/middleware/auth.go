package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FintechGT/empeno-backend/internal/auth"
)

// RequireAuth validates the bearer token issued by the external auth
// backend and stores the request-scoped actor for downstream handlers.
func RequireAuth(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := jwt.Parse(strings.TrimSpace(token))
		if err != nil || claims.Type != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		c.Next()
	}
}

// Actor rebuilds the authorization context set by RequireAuth.
func Actor(c *gin.Context) auth.Actor {
	return auth.Actor{
		UserID: c.GetString("user_id"),
		Role:   c.GetString("user_role"),
	}
}
