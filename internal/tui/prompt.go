package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/h0rv/kanbanbar/internal/copilot"
	"github.com/muesli/reflow/wordwrap"
)

var (
	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	replyMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
)

// PromptModel is the copilot conversation.
type PromptModel struct {
	copilot *copilot.Copilot
	ctx     context.Context

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	busy     bool

	width  int
	height int
}

type promptReplyMsg struct {
	err error
}

// NewPromptModel creates the conversation view over c.
func NewPromptModel(c *copilot.Copilot, ctx context.Context) PromptModel {
	ti := textinput.New()
	ti.Placeholder = `e.g. "Create a high priority bug for login"`
	ti.Prompt = "› "
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := PromptModel{
		copilot:  c,
		ctx:      ctx,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
	m.updateViewportContent()
	return m
}

// Init initializes the model.
func (m PromptModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.WindowSize())
}

// Update handles messages.
func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 3)
		m.input.Width = msg.Width - 4
		m.updateViewportContent()
		return m, nil

	case promptReplyMsg:
		m.busy = false
		m.updateViewportContent()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, func() tea.Msg { return closePromptMsg{} }
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "enter":
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			c, ctx := m.copilot, m.ctx
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				_, err := c.Process(ctx, prompt)
				return promptReplyMsg{err: err}
			})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateViewportContent renders the conversation and scrolls to its end.
func (m *PromptModel) updateViewportContent() {
	width := max(m.viewport.Width-2, 20)

	var b strings.Builder
	b.WriteString(replyMessageStyle.Render(wordwrap.String(copilot.Welcome, width)))
	for _, msg := range m.copilot.Messages() {
		b.WriteString("\n\n")
		switch {
		case msg.FromUser:
			b.WriteString(userMessageStyle.Render(wordwrap.String("› "+msg.Content, width)))
		case strings.HasPrefix(msg.Content, "# "):
			b.WriteString(renderMarkdown(msg.Content, width))
		default:
			b.WriteString(replyMessageStyle.Render(wordwrap.String(msg.Content, width)))
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View renders the conversation above the input line.
func (m PromptModel) View() string {
	status := DimStyle.Render("[enter]send [esc]back [pgup/pgdown]scroll")
	if m.busy {
		status = m.spinner.View() + " Working..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render("Task Copilot"),
		m.viewport.View(),
		m.input.View(),
		status,
	)
}
