package services

import (
	"context"

	"ContactRelay/models"
	"ContactRelay/pkg/apperr"
	"ContactRelay/pkg/auth"
	"ContactRelay/pkg/store"
)

// Verifier is satisfied by *auth.Guard.
type Verifier interface {
	VerifyToken(token string) auth.Verification
}

// Query serves the operator dashboard.
type Query struct {
	repo  store.Repository
	guard Verifier
}

func NewQuery(repo store.Repository, guard Verifier) *Query {
	return &Query{repo: repo, guard: guard}
}

// ListMessages returns every message, newest first.
func (s *Query) ListMessages(ctx context.Context, token string) ([]models.Message, error) {
	if err := authorize(s.guard, token); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx)
}

// ListSessions returns one summary per session, most recent first.
func (s *Query) ListSessions(ctx context.Context, token string) ([]models.SessionSummary, error) {
	msgs, err := s.ListMessages(ctx, token)
	if err != nil {
		return nil, err
	}
	return models.Summarize(msgs), nil
}

func authorize(guard Verifier, token string) error {
	if token == "" {
		return apperr.ErrUnauthorized
	}
	if v := guard.VerifyToken(token); !v.Valid {
		return apperr.ErrUnauthorized
	}
	return nil
}
