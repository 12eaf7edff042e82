// Package tui is the terminal front end: a login form followed by the
// council chat view with a session sidebar and a streaming transcript.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/elazargur/llm-council/internal/client"
	"github.com/elazargur/llm-council/internal/domain"
	"github.com/elazargur/llm-council/internal/turn"
)

type view int

const (
	viewLogin view = iota
	viewChat
)

const sidebarWidth = 32

// Model is the root Bubble Tea model.
type Model struct {
	client *client.Client
	logger *slog.Logger

	view view

	// Login form.
	password   textinput.Model
	email      textinput.Model
	focusEmail bool
	loginBusy  bool
	loginErr   string

	// Chat view.
	catalog       domain.ModelCatalog
	sessions      []domain.SessionSummary
	activeSession string
	messages      []domain.Message
	turnState     turn.State
	input         textinput.Model
	vp            viewport.Model
	vpReady       bool
	spin          spinner.Model
	statusErr     string

	// In-flight turn plumbing.
	snaps      chan turn.Snapshot
	done       chan turn.Result
	cancelTurn context.CancelFunc
	turnSeq    int

	width  int
	height int
}

// New builds the root model. When the client already holds a credential
// (e.g. from the environment) the login form is skipped after Init
// verifies it.
func New(c *client.Client, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.Focus()

	email := textinput.New()
	email.Placeholder = "you@example.com"

	input := textinput.New()
	input.Placeholder = "Ask the council..."
	input.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		client:    c,
		logger:    logger,
		view:      viewLogin,
		password:  password,
		email:     email,
		input:     input,
		spin:      sp,
		loginBusy: c.HasCredential(),
	}
}

func (m Model) Init() tea.Cmd {
	if m.loginBusy {
		return tea.Batch(textinput.Blink, m.spin.Tick, verifyCmd(m.client))
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.turnState.InFlight() || m.loginBusy {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case catalogMsg:
		if msg.err == nil {
			m.catalog = msg.catalog
		}
		return m, nil

	case sessionsMsg:
		if msg.err != nil {
			return m.handleAPIError(msg.err)
		}
		m.sessions = msg.sessions
		return m, nil

	case sessionOpenedMsg:
		if msg.err != nil {
			return m.handleAPIError(msg.err)
		}
		m.activeSession = msg.session.ID
		m.messages = msg.session.Messages
		m.statusErr = ""
		m.renderTranscript(true)
		return m, nil

	case sessionDeletedMsg:
		return m.handleSessionDeleted(msg)

	case turnSnapshotMsg:
		if msg.seq != m.turnSeq {
			return m, nil
		}
		return m.handleTurnSnapshot(msg.snap)

	case turnDoneMsg:
		if msg.seq != m.turnSeq {
			return m, nil
		}
		return m.handleTurnDone(msg.res)
	}

	return m.updateFocused(msg)
}

// updateFocused routes non-key messages (blink ticks mostly) to whichever
// text input currently has focus.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.view == viewLogin && m.focusEmail:
		m.email, cmd = m.email.Update(msg)
	case m.view == viewLogin:
		m.password, cmd = m.password.Update(msg)
	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.abandonTurn()
		return m, tea.Quit
	}
	if m.view == viewLogin {
		return m.handleLoginKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		m.focusEmail = !m.focusEmail
		if m.focusEmail {
			m.password.Blur()
			return m, m.email.Focus()
		}
		m.email.Blur()
		return m, m.password.Focus()

	case tea.KeyEnter:
		if m.loginBusy {
			return m, nil
		}
		password := strings.TrimSpace(m.password.Value())
		email := strings.TrimSpace(m.email.Value())
		if password == "" || email == "" {
			m.loginErr = "Both password and email are required"
			return m, nil
		}
		m.loginBusy = true
		m.loginErr = ""
		m.client.SetCredential(password, email)
		return m, tea.Batch(m.spin.Tick, verifyCmd(m.client))
	}

	return m.updateFocused(msg)
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()

	case tea.KeyCtrlN:
		m.abandonTurn()
		m.activeSession = ""
		m.messages = nil
		m.statusErr = ""
		m.turnState = turn.StateIdle
		m.renderTranscript(true)
		return m, nil

	case tea.KeyTab:
		return m.cycleSession(1)

	case tea.KeyShiftTab:
		return m.cycleSession(-1)

	case tea.KeyCtrlD:
		if m.activeSession == "" {
			return m, nil
		}
		m.abandonTurn()
		return m, deleteSessionCmd(m.client, m.activeSession)

	case tea.KeyPgUp:
		m.vp.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.vp.HalfViewDown()
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.turnState.InFlight() {
		return m, nil
	}
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}
	m.input.Reset()
	m.statusErr = ""

	// Flip to in-flight before the first snapshot lands, so a second
	// Enter in the gap cannot launch a concurrent turn.
	m.turnState = turn.StateAwaitingSession

	cmd := m.startTurn(content)
	return m, tea.Batch(m.spin.Tick, cmd)
}

// cycleSession moves the active session pointer through the sidebar list.
// Switching away abandons any in-flight turn.
func (m Model) cycleSession(step int) (tea.Model, tea.Cmd) {
	if len(m.sessions) == 0 {
		return m, nil
	}
	idx := -1
	for i, s := range m.sessions {
		if s.ID == m.activeSession {
			idx = i
			break
		}
	}
	idx = (idx + step + len(m.sessions)) % len(m.sessions)

	m.abandonTurn()
	m.turnState = turn.StateIdle
	return m, openSessionCmd(m.client, m.sessions[idx].ID)
}

func (m Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.loginBusy = false
	if msg.err != nil {
		m.loginErr = "Cannot reach server: " + msg.err.Error()
		return m, nil
	}
	if !msg.ok {
		m.client.ClearCredential()
		m.loginErr = "Invalid credentials"
		return m, nil
	}
	m.view = viewChat
	m.loginErr = ""
	m.password.Blur()
	m.email.Blur()
	m.layout()
	return m, tea.Batch(m.input.Focus(), loadCatalogCmd(m.client), loadSessionsCmd(m.client))
}

func (m Model) handleSessionDeleted(msg sessionDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, client.ErrNotFound) {
			// Already gone server-side; fall through and drop it locally.
		} else {
			return m.handleAPIError(msg.err)
		}
	}
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.ID != msg.id {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	if m.activeSession == msg.id {
		m.activeSession = ""
		m.messages = nil
		m.turnState = turn.StateIdle
		m.renderTranscript(true)
	}
	return m, nil
}

func (m Model) handleTurnSnapshot(s turn.Snapshot) (tea.Model, tea.Cmd) {
	m.turnState = s.State
	m.messages = s.Messages
	if s.SessionID != "" {
		m.activeSession = s.SessionID
	}
	m.renderTranscript(true)
	return m, m.waitTurn()
}

func (m Model) handleTurnDone(res turn.Result) (tea.Model, tea.Cmd) {
	m.snaps = nil
	m.done = nil
	m.cancelTurn = nil
	m.turnState = res.State

	if errors.Is(res.Err, context.Canceled) {
		// Abandoned by a session switch or reset; the view moved on.
		return m, nil
	}
	if errors.Is(res.Err, client.ErrUnauthorized) {
		return m.resetToLogin()
	}

	m.messages = res.Messages
	if res.SessionID != "" {
		m.activeSession = res.SessionID
	}
	if res.Err != nil {
		m.statusErr = res.Err.Error()
	}
	m.renderTranscript(true)
	if res.NeedsRefresh {
		return m, loadSessionsCmd(m.client)
	}
	return m, nil
}

// handleAPIError is the shared failure path for session and catalog calls.
// A 401 collapses the whole view back to the login form.
func (m Model) handleAPIError(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, client.ErrUnauthorized) {
		return m.resetToLogin()
	}
	m.statusErr = err.Error()
	return m, nil
}

func (m Model) resetToLogin() (tea.Model, tea.Cmd) {
	m.abandonTurn()
	m.view = viewLogin
	m.loginBusy = false
	m.loginErr = "Session expired, log in again"
	m.sessions = nil
	m.activeSession = ""
	m.messages = nil
	m.turnState = turn.StateIdle
	m.statusErr = ""
	m.password.Reset()
	m.email.Reset()
	m.focusEmail = false
	m.email.Blur()
	return m, m.password.Focus()
}

// abandonTurn cancels the in-flight turn, if any. Bumping the sequence
// invalidates every message the abandoned turn already published or will
// still publish; the orchestrator goroutine winds down on its own.
func (m *Model) abandonTurn() {
	if m.cancelTurn != nil {
		m.cancelTurn()
		m.cancelTurn = nil
		m.turnSeq++
		m.snaps = nil
		m.done = nil
	}
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	contentWidth := m.width - sidebarWidth - 3
	if contentWidth < 20 {
		contentWidth = 20
	}
	// Header, status line and input row.
	contentHeight := m.height - 4
	if contentHeight < 3 {
		contentHeight = 3
	}
	if !m.vpReady {
		m.vp = viewport.New(contentWidth, contentHeight)
		m.vpReady = true
	} else {
		m.vp.Width = contentWidth
		m.vp.Height = contentHeight
	}
	m.input.Width = contentWidth - 4
	m.renderTranscript(false)
}
