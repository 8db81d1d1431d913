package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"ContactRelay/models"
	"ContactRelay/pkg/apperr"
	"ContactRelay/pkg/store"
)

const DefaultOperatorName = "Admin"

// Replier stores operator answers. The operator path is trusted and not
// rate limited.
type Replier struct {
	repo         store.Repository
	guard        Verifier
	operatorName string
	log          zerolog.Logger
}

func NewReplier(repo store.Repository, guard Verifier, operatorName string, log zerolog.Logger) *Replier {
	if strings.TrimSpace(operatorName) == "" {
		operatorName = DefaultOperatorName
	}
	return &Replier{repo: repo, guard: guard, operatorName: operatorName, log: log}
}

// Reply appends an operator message to sessionID.
func (s *Replier) Reply(ctx context.Context, token, sessionID, content string) (models.Message, error) {
	if err := authorize(s.guard, token); err != nil {
		return models.Message{}, err
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || strings.TrimSpace(content) == "" {
		return models.Message{}, apperr.Invalid("", "Session ID and reply are required")
	}
	if err := store.ValidateSessionID(sessionID); err != nil {
		return models.Message{}, err
	}
	if err := store.ValidateContent("reply", content); err != nil {
		return models.Message{}, err
	}

	msg, err := s.repo.Append(ctx, models.Message{
		SessionID:  sessionID,
		Name:       s.operatorName,
		Content:    strings.TrimSpace(content),
		SenderType: models.SenderAdmin,
		IsRead:     true,
	})
	if err != nil {
		return models.Message{}, err
	}

	s.log.Debug().Str("session", sessionID).Uint("id", msg.ID).Msg("operator reply stored")
	return msg, nil
}

// ReplyToMessage answers in the session of an existing message.
func (s *Replier) ReplyToMessage(ctx context.Context, token string, messageID uint, content string) (models.Message, error) {
	if err := authorize(s.guard, token); err != nil {
		return models.Message{}, err
	}
	target, err := s.repo.Get(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	return s.Reply(ctx, token, target.SessionID, content)
}
