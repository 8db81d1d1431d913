package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"ContactRelay/middleware"
	"ContactRelay/pkg/apperr"
	"ContactRelay/pkg/auth"
)

// Login handler
func Login(guard *auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		username := strings.TrimSpace(body.Username)
		if username == "" || body.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
			return
		}

		token, err := guard.IssueToken(username, body.Password)
		if err != nil {
			if !errors.Is(err, apperr.ErrInvalidCredentials) {
				log.Error().Err(err).Msg("[auth] failed to create token")
			} else {
				log.Warn().Str("client", middleware.ClientKey(c)).Msg("[auth] rejected login")
			}
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// Logout handler
func Logout(guard *auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := guard.Revoke(middleware.Token(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
	}
}
