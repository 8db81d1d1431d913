package models

import (
	"sort"
	"time"
)

// SessionSummary is the operator-facing digest of one conversation.
type SessionSummary struct {
	SessionID       string    `json:"session_id"`
	Name            string    `json:"name"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
}

// Summarize groups messages by session. msgs must be ordered newest first;
// the first message seen for a session wins. Summaries are returned with
// the most recently active session first.
func Summarize(msgs []Message) []SessionSummary {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]SessionSummary, 0)
	for _, m := range msgs {
		if m.SessionID == "" {
			continue
		}
		if _, ok := seen[m.SessionID]; ok {
			continue
		}
		seen[m.SessionID] = struct{}{}
		out = append(out, SessionSummary{
			SessionID:       m.SessionID,
			Name:            m.Name,
			LastMessage:     m.Content,
			LastMessageTime: m.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].LastMessageTime.Before(out[i].LastMessageTime)
	})
	return out
}
