package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session has no stored state, either because
// it never existed or because its TTL elapsed.
var ErrNotFound = errors.New("session not found")

// State is everything the dashboard keeps for one session.
type State struct {
	ID           string        `json:"id"`
	Conversation *Conversation `json:"conversation"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewState starts a session with a freshly reset conversation.
func NewState(id, systemPrompt string) *State {
	now := time.Now().UTC()
	return &State{
		ID:           id,
		Conversation: NewConversation(systemPrompt),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *State) clone() *State {
	out := *s
	out.Conversation = s.Conversation.Clone()
	return &out
}

// Store persists session state between requests. Saving refreshes the TTL.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
