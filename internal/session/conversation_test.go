package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/covid-dashboard/internal/model"
)

func TestNewConversation(t *testing.T) {
	c := NewConversation("You are a helpful assistant.")

	turns := c.Snapshot()
	require.Len(t, turns, 1)
	assert.Equal(t, model.RoleSystem, turns[0].Role)
	assert.Equal(t, "You are a helpful assistant.", turns[0].Content)
	assert.NotEmpty(t, turns[0].ID)
}

func TestConversation_AppendKeepsOrder(t *testing.T) {
	c := NewConversation("sys")
	c.Append(NewUserTurn("hello"))
	c.Append(NewAssistantTurn("hi there"))

	turns := c.Snapshot()
	require.Len(t, turns, 3)
	assert.Equal(t, []model.Role{model.RoleSystem, model.RoleUser, model.RoleAssistant},
		[]model.Role{turns[0].Role, turns[1].Role, turns[2].Role})
	assert.Equal(t, "hello", turns[1].Content)
}

func TestConversation_SnapshotIsACopy(t *testing.T) {
	c := NewConversation("sys")
	snap := c.Snapshot()
	snap[0].Content = "tampered"

	assert.Equal(t, "sys", c.Snapshot()[0].Content)
	assert.Equal(t, 1, c.Len())
}

func TestConversation_Reset(t *testing.T) {
	c := NewConversation("sys")
	c.Append(NewUserTurn("a"))
	c.Append(NewAssistantTurn("b"))
	c.RecordUsage(model.UsageRecord{Model: "gpt-4", Cost: 0.5})

	c.Reset("sys")

	turns := c.Snapshot()
	require.Len(t, turns, 1)
	assert.Equal(t, model.RoleSystem, turns[0].Role)
	assert.Empty(t, c.Usage())
	assert.Zero(t, c.TotalCost())
}

func TestConversation_TotalCost(t *testing.T) {
	c := NewConversation("sys")
	c.RecordUsage(model.UsageRecord{Model: "gpt-4", Cost: 0.25})
	c.RecordUsage(model.UsageRecord{Model: "gpt-4", Cost: 0.5})

	assert.InDelta(t, 0.75, c.TotalCost(), 1e-9)
	assert.Len(t, c.Usage(), 2)
}

func TestConversation_JSON(t *testing.T) {
	c := NewConversation("sys")
	c.Append(NewUserTurn("hello"))
	c.RecordUsage(model.UsageRecord{Model: "gpt-4", TokensIn: 10, TokensOut: 5, Cost: 0.1})

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Conversation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, c.Snapshot(), decoded.Snapshot())
	assert.Equal(t, c.Usage(), decoded.Usage())
}

func TestConversation_UnmarshalRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"turns":[]}`},
		{"user first", `{"turns":[{"role":"user","content":"hi"}]}`},
		{"second system", `{"turns":[{"role":"system","content":"a"},{"role":"system","content":"b"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Conversation
			err := json.Unmarshal([]byte(tt.body), &c)
			assert.ErrorIs(t, err, errMalformed)
		})
	}
}
