// Package domain contains core domain types for the LLM Council application.
package domain

import (
	"time"
	"unicode/utf8"
)

// DefaultSessionTitle is assigned to sessions created before their first turn.
const DefaultSessionTitle = "New Conversation"

// titleMaxRunes caps session titles derived from the first user message.
const titleMaxRunes = 50

// SessionSummary describes a session without its message bodies.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// Session is a persisted conversation container with its full message sequence.
type Session struct {
	SessionSummary
	Messages []Message `json:"messages"`
}

// DeriveTitle produces a session title from the first user message.
func DeriveTitle(content string) string {
	if utf8.RuneCountInString(content) <= titleMaxRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:titleMaxRunes]) + "..."
}
