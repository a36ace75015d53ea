// Package session holds per-session dashboard state: the conversation with
// the assistant, its usage records and the stores that persist them between
// requests.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/covid-dashboard/internal/model"
)

// Conversation is the ordered transcript sent to the model on every turn. It
// always starts with exactly one system turn; other turns are only appended.
// A Conversation is not safe for concurrent use.
type Conversation struct {
	turns []model.Turn
	usage []model.UsageRecord
}

// NewConversation returns a conversation holding only the system turn.
func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{}
	c.Reset(systemPrompt)
	return c
}

// Reset replaces the transcript with a single system turn and clears usage.
func (c *Conversation) Reset(systemPrompt string) {
	c.turns = []model.Turn{newTurn(model.RoleSystem, systemPrompt)}
	c.usage = nil
}

// Append adds a turn to the end of the transcript. System turns are only
// created by Reset.
func (c *Conversation) Append(turn model.Turn) {
	c.turns = append(c.turns, turn)
}

// Snapshot returns a copy of the transcript.
func (c *Conversation) Snapshot() []model.Turn {
	out := make([]model.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// RecordUsage appends the usage of one completion.
func (c *Conversation) RecordUsage(rec model.UsageRecord) {
	c.usage = append(c.usage, rec)
}

// Usage returns a copy of the usage records.
func (c *Conversation) Usage() []model.UsageRecord {
	out := make([]model.UsageRecord, len(c.usage))
	copy(out, c.usage)
	return out
}

// TotalCost sums the estimated cost of every recorded completion.
func (c *Conversation) TotalCost() float64 {
	var total float64
	for _, u := range c.usage {
		total += u.Cost
	}
	return total
}

// Clone returns an independent copy.
func (c *Conversation) Clone() *Conversation {
	return &Conversation{turns: c.Snapshot(), usage: c.Usage()}
}

// NewUserTurn builds a user turn with a fresh ID.
func NewUserTurn(content string) model.Turn {
	return newTurn(model.RoleUser, content)
}

// NewAssistantTurn builds an assistant turn with a fresh ID.
func NewAssistantTurn(content string) model.Turn {
	return newTurn(model.RoleAssistant, content)
}

func newTurn(role model.Role, content string) model.Turn {
	return model.Turn{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

type conversationJSON struct {
	Turns []model.Turn        `json:"turns"`
	Usage []model.UsageRecord `json:"usage,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(conversationJSON{Turns: c.turns, Usage: c.usage})
}

// UnmarshalJSON implements json.Unmarshaler and enforces the leading
// system turn.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var raw conversationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := validateTurns(raw.Turns); err != nil {
		return err
	}
	c.turns = raw.Turns
	c.usage = raw.Usage
	return nil
}

var errMalformed = errors.New("malformed conversation")

func validateTurns(turns []model.Turn) error {
	if len(turns) == 0 || turns[0].Role != model.RoleSystem {
		return fmt.Errorf("%w: must start with a system turn", errMalformed)
	}
	for i, t := range turns[1:] {
		if t.Role == model.RoleSystem {
			return fmt.Errorf("%w: extra system turn at %d", errMalformed, i+1)
		}
	}
	return nil
}
