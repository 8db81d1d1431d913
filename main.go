package main

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"ContactRelay/pkg/auth"
	"ContactRelay/pkg/config"
	"ContactRelay/pkg/logger"
	"ContactRelay/pkg/ratelimit"
	"ContactRelay/pkg/services"
	"ContactRelay/pkg/store"
	tokenstore "ContactRelay/pkg/token"
	"ContactRelay/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := logger.Setup(cfg.LogLevel, cfg.IsProduction); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logger")
	}
	cfg.LogSummary()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open message store")
	}

	guard := auth.NewGuard(auth.Config{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.JWTSecret,
		TTL:          cfg.TokenTTL,
	}, tokenstore.New())

	submitLimiter := ratelimit.New(ratelimit.Config{
		MaxRequests:    cfg.RateLimitMax,
		Window:         cfg.RateLimitWindow,
		PruneThreshold: cfg.RateLimitPruneThreshold,
		MaxKeys:        cfg.RateLimitMaxKeys,
	})
	loginLimiter := ratelimit.New(ratelimit.Config{
		MaxRequests:    cfg.LoginRateLimitMax,
		Window:         cfg.LoginRateLimitWindow,
		PruneThreshold: cfg.RateLimitPruneThreshold,
		MaxKeys:        cfg.RateLimitMaxKeys,
	})

	logLimiter("submit", submitLimiter)
	logLimiter("login", loginLimiter)

	r, err := routes.NewRouter(routes.Deps{
		Guard:          guard,
		Ingestion:      services.NewIngestion(repo, submitLimiter, log.With().Str("svc", "ingest").Logger()),
		Query:          services.NewQuery(repo, guard),
		Replier:        services.NewReplier(repo, guard, cfg.AdminDisplayName, log.With().Str("svc", "reply").Logger()),
		LoginLimiter:   loginLimiter,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Log:            log.With().Str("component", "http").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	log.Info().Str("port", cfg.Port).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// logLimiter prints the limits in effect once defaults are applied.
func logLimiter(name string, l *ratelimit.Limiter) {
	c := l.Config()
	log.Info().
		Str("limiter", name).
		Int("max", c.MaxRequests).
		Dur("window", c.Window).
		Int("prune_threshold", c.PruneThreshold).
		Int("max_keys", c.MaxKeys).
		Msg("[config] rate limit")
}

func openRepository(cfg *config.Config) (store.Repository, error) {
	if cfg.DBDriver == "memory" {
		log.Warn().Msg("using in-memory message store; messages are lost on restart")
		return store.NewMemoryStore(), nil
	}

	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	s := store.NewGormStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}
