// Package store is the append-only message repository.
package store

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"ContactRelay/models"
	"ContactRelay/pkg/apperr"
)

// Repository is implemented by GormStore and MemoryStore. There is no
// update or delete: messages are immutable once appended.
type Repository interface {
	// Append assigns ID and CreatedAt and persists m.
	Append(ctx context.Context, m models.Message) (models.Message, error)
	// ListAll returns every message, newest first.
	ListAll(ctx context.Context) ([]models.Message, error)
	// ListBySession returns one conversation, oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]models.Message, error)
	// Get returns apperr.ErrNotFound for unknown ids.
	Get(ctx context.Context, id uint) (models.Message, error)
}

// ValidateSessionID rejects ids the session_id column cannot hold.
func ValidateSessionID(id string) error {
	if utf8.RuneCountInString(id) > models.MaxSessionIDLength {
		return apperr.Invalid("session_id", "Session ID must be 100 characters or less")
	}
	return nil
}

// ValidateContent checks the bounds every stored message must satisfy.
func ValidateContent(field, content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Invalid(field, "Message content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxContentLength {
		return apperr.Invalid(field, "Message must be 2000 characters or less")
	}
	return nil
}

func validate(m models.Message) error {
	if strings.TrimSpace(m.SessionID) == "" {
		return apperr.Invalid("session_id", "Session ID is required")
	}
	if err := ValidateSessionID(m.SessionID); err != nil {
		return err
	}
	if err := ValidateContent("content", m.Content); err != nil {
		return err
	}
	switch m.SenderType {
	case models.SenderUser, models.SenderAdmin, models.SenderManager:
	default:
		return apperr.Invalid("sender_type", "unknown sender type")
	}
	return nil
}

func stamp(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}
