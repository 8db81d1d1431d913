package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ContactRelay/models"
	"ContactRelay/pkg/apperr"
	"ContactRelay/pkg/ratelimit"
	"ContactRelay/pkg/store"
)

const (
	AnonymousName = "Anonymous"
	maxNameLength = 100
)

// Limiter is satisfied by *ratelimit.Limiter.
type Limiter interface {
	Check(key string) ratelimit.Result
}

// Ingestion accepts messages from anonymous visitors.
type Ingestion struct {
	repo    store.Repository
	limiter Limiter
	log     zerolog.Logger
}

func NewIngestion(repo store.Repository, limiter Limiter, log zerolog.Logger) *Ingestion {
	return &Ingestion{repo: repo, limiter: limiter, log: log}
}

// Submit stores one visitor message. The limiter is consulted before any
// validation so abusive callers are turned away cheaply.
func (s *Ingestion) Submit(ctx context.Context, sessionID, name, content, clientKey string) (models.Message, error) {
	if res := s.limiter.Check(clientKey); !res.Allowed {
		s.log.Warn().Str("client", clientKey).Int("retry_after", res.RetryAfter).Msg("submission rate limited")
		return models.Message{}, &apperr.RateLimitedError{RetryAfter: res.RetryAfter}
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || strings.TrimSpace(content) == "" {
		return models.Message{}, apperr.Invalid("", "Session ID and content are required")
	}
	if err := store.ValidateSessionID(sessionID); err != nil {
		return models.Message{}, err
	}
	if err := store.ValidateContent("content", content); err != nil {
		return models.Message{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = AnonymousName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return models.Message{}, apperr.Invalid("name", "Name must be 100 characters or less")
	}

	msg, err := s.repo.Append(ctx, models.Message{
		SessionID:  sessionID,
		Name:       name,
		Content:    strings.TrimSpace(content),
		SenderType: models.SenderUser,
		IsRead:     false,
	})
	if err != nil {
		return models.Message{}, err
	}

	s.log.Debug().Str("session", sessionID).Uint("id", msg.ID).Msg("visitor message stored")
	return msg, nil
}

// History returns one visitor conversation, oldest first. Visitors are
// correlated only by their session id; no token is involved.
func (s *Ingestion) History(ctx context.Context, sessionID string) ([]models.Message, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.Invalid("session_id", "Session ID is required")
	}
	return s.repo.ListBySession(ctx, sessionID)
}
