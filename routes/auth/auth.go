package auth

import (
	"github.com/gin-gonic/gin"

	"ContactRelay/controllers"
	"ContactRelay/middleware"
	guardpkg "ContactRelay/pkg/auth"
	"ContactRelay/pkg/ratelimit"
)

// RegisterPublic registers public auth routes: /auth/login
func RegisterPublic(r *gin.Engine, guard *guardpkg.Guard, limiter *ratelimit.Limiter) {
	handlers := []gin.HandlerFunc{controllers.Login(guard)}
	if limiter != nil {
		handlers = append([]gin.HandlerFunc{middleware.RateLimit(limiter, "Too many login attempts. Please try again later.")}, handlers...)
	}
	r.POST("/auth/login", handlers...)
}

// RegisterProtected registers protected auth routes (e.g. logout)
func RegisterProtected(g *gin.RouterGroup, guard *guardpkg.Guard) {
	g.POST("/auth/logout", controllers.Logout(guard))
}
