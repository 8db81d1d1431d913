package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ContactRelay/controllers"
	"ContactRelay/middleware"
	"ContactRelay/pkg/auth"
	"ContactRelay/pkg/ratelimit"
	"ContactRelay/pkg/services"

	authRoutes "ContactRelay/routes/auth"
	healthRoutes "ContactRelay/routes/health"
	messageRoutes "ContactRelay/routes/messages"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Guard        *auth.Guard
	Ingestion    *services.Ingestion
	Query        *services.Query
	Replier      *services.Replier
	LoginLimiter *ratelimit.Limiter

	// AllowedOrigins empty means any origin.
	AllowedOrigins []string
	// TrustedProxies empty means forwarding headers are ignored.
	TrustedProxies []string
	Log            zerolog.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	if err := middleware.TrustProxies(r, d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(cors.New(corsConfig(d.AllowedOrigins)))

	RegisterRoutes(r, d)
	r.NoRoute(controllers.NotFound())
	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:             []string{"Content-Length", "Retry-After"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "contact relay running"})
	})

	healthRoutes.Register(r)
	authRoutes.RegisterPublic(r, d.Guard, d.LoginLimiter)
	messageRoutes.RegisterPublic(r, d.Ingestion)
	messageRoutes.RegisterOperator(r, d.Query, d.Replier)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware(d.Guard))
	authRoutes.RegisterProtected(protected, d.Guard)
}
