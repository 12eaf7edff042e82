package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/elazargur/llm-council/internal/client"
	"github.com/elazargur/llm-council/internal/domain"
	"github.com/elazargur/llm-council/internal/turn"
)

type loginResultMsg struct {
	ok  bool
	err error
}

type catalogMsg struct {
	catalog domain.ModelCatalog
	err     error
}

type sessionsMsg struct {
	sessions []domain.SessionSummary
	err      error
}

type sessionOpenedMsg struct {
	session *domain.Session
	err     error
}

type sessionDeletedMsg struct {
	id  string
	err error
}

type turnSnapshotMsg struct {
	seq  int
	snap turn.Snapshot
}

type turnDoneMsg struct {
	seq int
	res turn.Result
}

// councilAPI adapts *client.Client to the orchestrator's API interface,
// narrowing the concrete stream type to turn.EventSource.
type councilAPI struct {
	c *client.Client
}

func (a councilAPI) CreateSession(ctx context.Context) (domain.SessionSummary, error) {
	return a.c.CreateSession(ctx)
}

func (a councilAPI) Council(ctx context.Context, content string, cfg domain.ModelConfig, sessionID string) (turn.EventSource, error) {
	return a.c.Council(ctx, content, cfg, sessionID)
}

func verifyCmd(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ok, err := c.Verify(context.Background())
		return loginResultMsg{ok: ok, err: err}
	}
}

func loadCatalogCmd(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		catalog, err := c.Models(context.Background())
		return catalogMsg{catalog: catalog, err: err}
	}
}

func loadSessionsCmd(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		sessions, err := c.ListSessions(context.Background())
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func openSessionCmd(c *client.Client, id string) tea.Cmd {
	return func() tea.Msg {
		session, err := c.GetSession(context.Background(), id)
		return sessionOpenedMsg{session: session, err: err}
	}
}

func deleteSessionCmd(c *client.Client, id string) tea.Cmd {
	return func() tea.Msg {
		err := c.DeleteSession(context.Background(), id)
		return sessionDeletedMsg{id: id, err: err}
	}
}

// startTurn launches the orchestrator in its own goroutine. Snapshots
// arrive over a buffered channel so the fold never blocks on rendering;
// the Result lands on done after the snapshot channel closes.
func (m *Model) startTurn(content string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelTurn = cancel
	m.turnSeq++

	snaps := make(chan turn.Snapshot, 64)
	done := make(chan turn.Result, 1)
	m.snaps = snaps
	m.done = done

	orch := turn.New(councilAPI{c: m.client}, func(s turn.Snapshot) { snaps <- s }, m.logger)
	base := m.messages
	sessionID := m.activeSession
	cfg := m.modelConfig()

	go func() {
		defer close(snaps)
		done <- orch.Run(ctx, content, cfg, sessionID, base)
	}()

	return m.waitTurn()
}

// modelConfig snapshots the catalog's server defaults into the per-turn
// request. Empty until the catalog loads, in which case the server falls
// back to its own configuration.
func (m Model) modelConfig() domain.ModelConfig {
	return domain.ModelConfig{
		CouncilModels: m.catalog.DefaultCouncilModels,
		ChairmanModel: m.catalog.DefaultChairmanModel,
	}
}

// waitTurn yields the next snapshot, or the final result once the
// snapshot channel drains. The Update loop re-arms it after every
// snapshot, one message per command. Messages carry the turn sequence so
// a reader armed for an abandoned turn cannot feed a newer one.
func (m *Model) waitTurn() tea.Cmd {
	snaps, done, seq := m.snaps, m.done, m.turnSeq
	if snaps == nil {
		return nil
	}
	return func() tea.Msg {
		if s, ok := <-snaps; ok {
			return turnSnapshotMsg{seq: seq, snap: s}
		}
		return turnDoneMsg{seq: seq, res: <-done}
	}
}
