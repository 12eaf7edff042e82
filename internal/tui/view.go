package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/elazargur/llm-council/internal/domain"
	"github.com/elazargur/llm-council/internal/turn"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sidebarStyle = lipgloss.NewStyle().
			Width(sidebarWidth).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color("240"))
	activeItemStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	stageStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	modelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	spinnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if m.view == viewLogin {
		return m.loginView()
	}
	return m.chatView()
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("LLM Council"))
	b.WriteString("\n\n")
	b.WriteString("Password\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\nEmail\n")
	b.WriteString(m.email.View())
	b.WriteString("\n\n")
	if m.loginBusy {
		b.WriteString(m.spin.View() + " verifying...")
	} else if m.loginErr != "" {
		b.WriteString(errStyle.Render(m.loginErr))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab switch field • enter log in • esc quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) chatView() string {
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.vp.View(),
		m.statusLine(),
		m.input.View(),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), " ", main)
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body)
}

func (m Model) headerView() string {
	title := titleStyle.Render("LLM Council")
	help := helpStyle.Render("enter send • ^N new • tab/shift+tab sessions • ^D delete • ^C quit")
	header := title + "  " + help
	if m.catalog.DefaultChairmanModel != "" {
		header += "  " + dimStyle.Render(fmt.Sprintf("%d models, chair %s",
			len(m.catalog.DefaultCouncilModels), m.catalog.DefaultChairmanModel))
	}
	return header
}

func (m Model) sidebarView() string {
	var b strings.Builder
	b.WriteString(dimStyle.Render("Conversations"))
	b.WriteString("\n")
	if len(m.sessions) == 0 {
		b.WriteString(dimStyle.Render("(none yet)"))
	}
	for _, s := range m.sessions {
		line := truncate(s.Title, sidebarWidth-4)
		if s.ID == m.activeSession {
			b.WriteString(activeItemStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return sidebarStyle.Render(b.String())
}

func (m Model) statusLine() string {
	switch {
	case m.statusErr != "":
		return errStyle.Render(m.statusErr)
	case m.turnState == turn.StateAwaitingSession:
		return m.spin.View() + " creating conversation..."
	case m.turnState == turn.StateStreaming:
		return m.spin.View() + " the council is deliberating..."
	case m.activeSession == "":
		return dimStyle.Render("New conversation")
	default:
		return ""
	}
}

// renderTranscript rebuilds the viewport content from the message list.
func (m *Model) renderTranscript(gotoBottom bool) {
	if !m.vpReady {
		return
	}
	var parts []string
	for _, msg := range m.messages {
		parts = append(parts, renderMessage(msg, m.vp.Width))
	}
	m.vp.SetContent(strings.Join(parts, "\n\n"))
	if gotoBottom {
		m.vp.GotoBottom()
	}
}

func renderMessage(msg domain.Message, width int) string {
	if msg.Role == domain.RoleUser {
		return userStyle.Render("You") + "\n" + wrap(msg.Content, width)
	}

	var b strings.Builder

	if len(msg.Stage1) > 0 || msg.Loading.Stage1 {
		b.WriteString(stageStyle.Render("Stage 1 · First opinions"))
		b.WriteString(renderStatuses(msg, msg.Loading.Stage1))
		b.WriteString("\n")
		for _, model := range sortedKeys(msg.Stage1) {
			b.WriteString(modelStyle.Render(model))
			b.WriteString("\n")
			b.WriteString(wrap(msg.Stage1[model], width))
			b.WriteString("\n")
		}
	}

	if len(msg.Stage2) > 0 || msg.Loading.Stage2 {
		b.WriteString("\n")
		b.WriteString(stageStyle.Render("Stage 2 · Peer review"))
		if msg.Loading.Stage2 {
			b.WriteString(dimStyle.Render("  reviewing..."))
		}
		b.WriteString("\n")
		if msg.Metadata != nil {
			for i, r := range msg.Metadata.AggregateRankings {
				b.WriteString(fmt.Sprintf("%d. %s (avg %.2f)\n", i+1, modelStyle.Render(r.Model), r.AverageRank))
			}
		}
	}

	if msg.Stage3 != nil || msg.Loading.Stage3 {
		b.WriteString("\n")
		b.WriteString(stageStyle.Render("Stage 3 · Chairman synthesis"))
		if msg.Loading.Stage3 {
			b.WriteString(dimStyle.Render("  synthesizing..."))
		}
		b.WriteString("\n")
		if msg.Stage3 != nil {
			b.WriteString(dimStyle.Render(msg.Stage3.Model))
			b.WriteString("\n")
			b.WriteString(wrap(msg.Stage3.Response, width))
			b.WriteString("\n")
		}
	}

	if msg.Err != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render("Error: " + msg.Err))
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderStatuses draws one glyph per council model: a dot while pending,
// a check on success, a cross on failure.
func renderStatuses(msg domain.Message, loading bool) string {
	if len(msg.ModelStatus) == 0 {
		if loading {
			return dimStyle.Render("  waiting...")
		}
		return ""
	}
	var b strings.Builder
	b.WriteString("  ")
	for _, model := range sortedStatusKeys(msg.ModelStatus) {
		switch msg.ModelStatus[model] {
		case domain.ModelSuccess:
			b.WriteString(okStyle.Render("✓"))
		case domain.ModelFailed:
			b.WriteString(errStyle.Render("✗"))
		default:
			b.WriteString(dimStyle.Render("·"))
		}
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStatusKeys(m map[string]domain.ModelStatus) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
