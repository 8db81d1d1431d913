package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"ContactRelay/pkg/apperr"
	"ContactRelay/pkg/auth"
)

// respondError converts any service error into one of the API's error
// responses. Internal detail only reaches the log.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	body := gin.H{"error": apperr.PublicMessage(err)}

	var rl *apperr.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(rl.RetryAfter))
		body["retryAfter"] = rl.RetryAfter
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	c.AbortWithStatusJSON(status, body)
}

// bearer extracts the operator token, answering 401 itself when absent.
func bearer(c *gin.Context) (string, bool) {
	token := auth.ExtractToken(c.Request.Header)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return "", false
	}
	return token, true
}
