package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	IsStaging    bool
	IsProduction bool

	Port     string
	LogLevel string

	// operator account
	JWTSecret         string
	TokenTTL          time.Duration
	AdminUsername     string
	AdminPasswordHash string
	AdminDisplayName  string

	DBDriver string // sqlite | mysql | memory
	DBDSN    string

	// empty means any origin
	AllowedOrigins []string
	// proxies whose forwarding headers are believed; empty trusts none
	TrustedProxies []string

	// runtime tunables
	RateLimitMax            int
	RateLimitWindow         time.Duration
	RateLimitPruneThreshold int
	RateLimitMaxKeys        int
	LoginRateLimitMax       int
	LoginRateLimitWindow    time.Duration
}

// loadDotEnv loads .env outside production. A missing file is fine.
func loadDotEnv(appEnv string) error {
	if appEnv == "production" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads configuration from the environment (and .env when not in
// production).
func Load() (*Config, error) {
	if err := loadDotEnv(os.Getenv("APP_ENV")); err != nil {
		return nil, err
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an environment lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	c := &Config{}

	c.AppEnv = getenv("APP_ENV")
	if !slices.Contains([]string{"staging", "production"}, c.AppEnv) {
		return nil, errors.New("environment variable APP_ENV must be 'staging' or 'production'")
	}
	c.IsStaging = c.AppEnv == "staging"
	c.IsProduction = c.AppEnv == "production"

	c.Port = orDefault(getenv("PORT"), "5000")
	c.LogLevel = orDefault(getenv("LOG_LEVEL"), "info")

	c.JWTSecret = getenv("JWT_SECRET_KEY")
	c.TokenTTL = time.Duration(atoiOr(getenv("TOKEN_TTL_HOURS"), 24)) * time.Hour
	c.AdminUsername = strings.TrimSpace(getenv("ADMIN_USERNAME"))
	c.AdminPasswordHash = strings.TrimSpace(getenv("ADMIN_PASSWORD_HASH"))
	c.AdminDisplayName = orDefault(getenv("ADMIN_DISPLAY_NAME"), "Admin")

	c.DBDriver = strings.ToLower(orDefault(getenv("DB_DRIVER"), "sqlite"))
	c.DBDSN = orDefault(getenv("DB_DSN"), "relay.db")
	if !slices.Contains([]string{"sqlite", "mysql", "memory"}, c.DBDriver) {
		return nil, fmt.Errorf("DB_DRIVER must be sqlite, mysql or memory, got %q", c.DBDriver)
	}

	c.AllowedOrigins = splitOrigins(getenv("ALLOWED_ORIGINS"))

	proxies, err := parseProxies(getenv("TRUSTED_PROXIES"))
	if err != nil {
		return nil, err
	}
	c.TrustedProxies = proxies

	c.RateLimitMax = atoiOr(getenv("RATE_LIMIT_MAX"), 5)
	c.RateLimitWindow = time.Duration(atoiOr(getenv("RATE_LIMIT_WINDOW_SECONDS"), 3600)) * time.Second
	c.RateLimitPruneThreshold = atoiOr(getenv("RATE_LIMIT_PRUNE_THRESHOLD"), 1000)
	c.RateLimitMaxKeys = atoiOr(getenv("RATE_LIMIT_MAX_KEYS"), 10000)
	c.LoginRateLimitMax = atoiOr(getenv("LOGIN_RATE_LIMIT_MAX"), 10)
	c.LoginRateLimitWindow = time.Duration(atoiOr(getenv("LOGIN_RATE_LIMIT_WINDOW_SECONDS"), 900)) * time.Second

	// production must not run with an ephemeral signing key
	if c.JWTSecret == "" {
		if c.IsProduction {
			return nil, errors.New("JWT_SECRET_KEY must be set in production")
		}
		c.JWTSecret = RandomSecret()
		log.Warn().Msg("[config] JWT_SECRET_KEY not set, using a random key; tokens will not survive a restart")
	}

	if c.AdminUsername == "" || c.AdminPasswordHash == "" {
		log.Warn().Msg("[config] ADMIN_USERNAME or ADMIN_PASSWORD_HASH missing, operator login is disabled")
	}

	return c, nil
}

// LogSummary prints the values that help debug a deployment.
func (c *Config) LogSummary() {
	log.Info().
		Str("env", c.AppEnv).
		Str("port", c.Port).
		Str("db_driver", c.DBDriver).
		Strs("allowed_origins", c.AllowedOrigins).
		Strs("trusted_proxies", c.TrustedProxies).
		Msg("[config] loaded")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return nil
		}
		out = append(out, o)
	}
	return out
}

// parseProxies accepts a comma separated list of IPs and CIDRs.
func parseProxies(raw string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v > 0 {
		return v
	}
	return def
}

// RandomSecret returns 32 random bytes, hex encoded.
func RandomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
