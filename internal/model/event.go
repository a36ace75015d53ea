package model

import (
	"time"
)

// EventType represents the type of conversation event.
type EventType string

const (
	EventTypeTurn  EventType = "turn"
	EventTypeReset EventType = "reset"
	EventTypeError EventType = "error"
)

// ConversationEvent is an audit record of something that happened to a
// session's conversation.
type ConversationEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Turn      *Turn          `json:"turn,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
