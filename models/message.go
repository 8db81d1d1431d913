package models

import (
	"time"
)

// MaxContentLength bounds message and reply text, counted in characters.
const MaxContentLength = 2000

// MaxSessionIDLength matches the session_id column size.
const MaxSessionIDLength = 100

type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
	// SenderManager is the legacy operator tag still present in older rows.
	SenderManager SenderType = "manager"
)

// IsOperator reports whether the message was written from the dashboard.
func (s SenderType) IsOperator() bool {
	return s == SenderAdmin || s == SenderManager
}

// Message is the only persisted entity. Rows are append-only.
type Message struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SessionID  string     `gorm:"size:100;index;not null" json:"session_id"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	SenderType SenderType `gorm:"size:20;not null" json:"sender_type"`
	IsRead     bool       `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time  `gorm:"index;not null" json:"created_at"`
}
