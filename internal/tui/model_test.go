package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elazargur/llm-council/internal/client"
	"github.com/elazargur/llm-council/internal/domain"
	"github.com/elazargur/llm-council/internal/turn"
)

func enterKey() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func TestSubmitBlocksUntilTurnFinishes(t *testing.T) {
	m := New(client.New("http://localhost:8080", nil), nil)
	m.view = viewChat
	m.input.SetValue("first question")

	updated, _ := m.Update(enterKey())
	got := updated.(Model)

	assert.True(t, got.turnState.InFlight(), "state must flip before any snapshot arrives")
	assert.Equal(t, 1, got.turnSeq)
	assert.Empty(t, got.input.Value())

	// A second Enter in the gap before the first snapshot must be a no-op.
	got.input.SetValue("second question")
	updated, _ = got.Update(enterKey())
	got = updated.(Model)

	assert.Equal(t, 1, got.turnSeq, "no second turn may launch while one is in flight")
	assert.Equal(t, "second question", got.input.Value())
}

func TestAbandonedTurnSnapshotsAreDiscarded(t *testing.T) {
	m := New(client.New("http://localhost:8080", nil), nil)
	m.view = viewChat
	m.turnSeq = 1
	m.cancelTurn = func() {}
	m.snaps = make(chan turn.Snapshot)
	m.done = make(chan turn.Result)
	m.activeSession = "s1"
	m.messages = []domain.Message{domain.NewUserMessage("pending")}
	m.turnState = turn.StateStreaming

	// ^N abandons the turn and clears the view.
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	got := updated.(Model)
	require.Empty(t, got.messages)
	require.Empty(t, got.activeSession)
	assert.Nil(t, got.snaps)
	assert.Nil(t, got.done)

	// A snapshot the abandoned orchestrator already published must not
	// repopulate the cleared view.
	updated, _ = got.Update(turnSnapshotMsg{seq: 1, snap: turn.Snapshot{
		Messages:  []domain.Message{domain.NewUserMessage("pending"), domain.NewAssistantShell()},
		State:     turn.StateStreaming,
		SessionID: "s1",
	}})
	got = updated.(Model)

	assert.Empty(t, got.messages)
	assert.Empty(t, got.activeSession)
	assert.Equal(t, turn.StateIdle, got.turnState)

	// Same for the abandoned turn's final result.
	updated, _ = got.Update(turnDoneMsg{seq: 1, res: turn.Result{
		State:     turn.StateCompleted,
		SessionID: "s1",
	}})
	got = updated.(Model)
	assert.Empty(t, got.activeSession)
}

func TestModelConfigCarriesCatalogDefaults(t *testing.T) {
	m := New(client.New("http://localhost:8080", nil), nil)

	assert.Equal(t, domain.ModelConfig{}, m.modelConfig(), "empty until the catalog loads")

	m.catalog = domain.ModelCatalog{
		AvailableModels:      []string{"a", "b", "c"},
		DefaultCouncilModels: []string{"a", "b"},
		DefaultChairmanModel: "c",
	}

	cfg := m.modelConfig()
	assert.Equal(t, []string{"a", "b"}, cfg.CouncilModels)
	assert.Equal(t, "c", cfg.ChairmanModel)
}
