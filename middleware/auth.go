package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ContactRelay/pkg/auth"
)

const (
	ContextIdentityKey = "current_operator"
	ContextTokenKey    = "current_token"
)

// AuthMiddleware rejects requests without a valid operator bearer token.
func AuthMiddleware(guard *auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractToken(c.Request.Header)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}

		v := guard.VerifyToken(token)
		if !v.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": v.Error})
			return
		}

		c.Set(ContextIdentityKey, *v.Identity)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// Token returns the bearer token stored by AuthMiddleware.
func Token(c *gin.Context) string {
	return c.GetString(ContextTokenKey)
}
