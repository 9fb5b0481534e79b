package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/h0rv/kanbanbar/internal/engine"
	"github.com/muesli/reflow/wordwrap"
)

// Layout constants
const (
	leftPanelRatio = 0.35
	minLeftWidth   = 30
	maxLeftWidth   = 50
	headerHeight   = 1
	footerHeight   = 1
	borderSize     = 2
)

var (
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	focusedPanelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)
)

type detailMode int

const (
	modeView detailMode = iota
	modeEdit
	modeCreate
)

// DetailModel shows one item and edits or creates draft issues.
type DetailModel struct {
	engine *engine.Engine
	ctx    context.Context

	item   *domain.Item // nil when creating
	status string       // column a new task is created in

	// priorities are the project's Priority options; priority indexes them, -1 for none.
	priorities []domain.Option
	priority   int

	spinner    spinner.Model
	titleInput textinput.Model
	bodyInput  textarea.Model
	viewport   viewport.Model

	mode        detailMode
	confirmExit bool
	saving      bool
	errorMsg    string

	width  int
	height int
}

// NewDetailModel shows the item with id itemID from the board's project.
func NewDetailModel(e *engine.Engine, ctx context.Context, itemID string) DetailModel {
	m := newDetailModel(e, ctx)
	if p := e.Board().Project(); p != nil {
		if it := p.Item(itemID); it != nil {
			cp := *it
			m.item = &cp
		}
	}
	return m
}

// NewCreateModel opens the editor for a new draft in column status.
func NewCreateModel(e *engine.Engine, ctx context.Context, status string) DetailModel {
	m := newDetailModel(e, ctx)
	m.status = status
	m.mode = modeCreate
	m.priority = -1
	if p := e.Board().Project(); p != nil {
		if f := p.Field(domain.FieldPriority); f != nil {
			m.priorities = f.Options
		}
	}
	m.titleInput.Focus()
	return m
}

func newDetailModel(e *engine.Engine, ctx context.Context) DetailModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.Prompt = "Title: "
	ti.CharLimit = 256

	ta := textarea.New()
	ta.Placeholder = "Body (markdown)"
	ta.CharLimit = 65535
	ta.SetHeight(8)
	ta.SetWidth(40)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	vp := viewport.New(40, 10)
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	return DetailModel{
		engine:     e,
		ctx:        ctx,
		spinner:    sp,
		titleInput: ti,
		bodyInput:  ta,
		viewport:   vp,
	}
}

// Init initializes the detail model.
func (m DetailModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tea.WindowSize()}
	if m.mode == modeCreate {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeComponents()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		m.saving = false
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			return m, nil
		}
		return m, func() tea.Msg { return closeDetailMsg{} }

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		if m.mode == modeView {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m *DetailModel) resizeComponents() {
	leftWidth := m.leftWidth(m.width)
	rightWidth := max(m.width-leftWidth-3, 30)
	contentHeight := max(m.height-headerHeight-footerHeight-borderSize, 10)

	m.viewport.Width = rightWidth - borderSize - 2
	m.viewport.Height = contentHeight - borderSize
	m.titleInput.Width = rightWidth - borderSize - 10
	m.bodyInput.SetWidth(rightWidth - borderSize - 4)
	m.bodyInput.SetHeight(max(contentHeight-borderSize-6, 4))
	m.updateViewportContent()
}

func (m DetailModel) leftWidth(width int) int {
	w := int(float64(width) * leftPanelRatio)
	return min(max(w, minLeftWidth), maxLeftWidth)
}

func (m DetailModel) editing() bool {
	return m.mode == modeEdit || m.mode == modeCreate
}

func (m DetailModel) dirty() bool {
	if m.mode == modeCreate {
		return strings.TrimSpace(m.titleInput.Value()) != "" || strings.TrimSpace(m.bodyInput.Value()) != ""
	}
	c := m.item.Content
	return m.titleInput.Value() != c.Title || m.bodyInput.Value() != c.Body
}

func (m DetailModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.saving {
		return m, nil
	}

	if m.confirmExit {
		switch msg.String() {
		case "y", "Y":
			m.confirmExit = false
			return m.leaveEditor()
		case "n", "N", "esc":
			m.confirmExit = false
		case "s", "S":
			m.confirmExit = false
			return m.save()
		}
		return m, nil
	}

	if m.editing() {
		switch msg.String() {
		case "esc":
			if m.dirty() {
				m.confirmExit = true
				return m, nil
			}
			return m.leaveEditor()
		case "ctrl+s":
			return m.save()
		case "ctrl+p":
			if m.mode == modeCreate && len(m.priorities) > 0 {
				m.priority++
				if m.priority >= len(m.priorities) {
					m.priority = -1
				}
			}
			return m, nil
		case "tab", "shift+tab":
			var cmd tea.Cmd
			if m.titleInput.Focused() {
				m.titleInput.Blur()
				cmd = m.bodyInput.Focus()
			} else {
				m.bodyInput.Blur()
				cmd = m.titleInput.Focus()
			}
			return m, cmd
		}
		var cmd tea.Cmd
		if m.titleInput.Focused() {
			m.titleInput, cmd = m.titleInput.Update(msg)
		} else {
			m.bodyInput, cmd = m.bodyInput.Update(msg)
		}
		return m, cmd
	}

	switch msg.String() {
	case "q", "esc":
		return m, func() tea.Msg { return closeDetailMsg{} }
	case "o":
		if u := m.url(); u != "" {
			if err := openURL(u); err != nil {
				m.errorMsg = "Open failed: " + err.Error()
			}
		}
	case "y":
		if u := m.url(); u != "" {
			if err := copyText(u); err != nil {
				m.errorMsg = "Copy failed: " + err.Error()
			}
		}
	case "e":
		if m.isDraft() {
			m.mode = modeEdit
			m.errorMsg = ""
			m.titleInput.SetValue(m.item.Content.Title)
			m.bodyInput.SetValue(m.item.Content.Body)
			cmd := m.titleInput.Focus()
			return m, cmd
		}
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	case "ctrl+d":
		m.viewport.HalfViewDown()
	case "ctrl+u":
		m.viewport.HalfViewUp()
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	}
	return m, nil
}

// leaveEditor discards the edit. Creating returns to the board, editing to the view.
func (m DetailModel) leaveEditor() (tea.Model, tea.Cmd) {
	if m.mode == modeCreate {
		return m, func() tea.Msg { return closeDetailMsg{} }
	}
	m.mode = modeView
	m.titleInput.Blur()
	m.bodyInput.Blur()
	return m, nil
}

func (m DetailModel) save() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.titleInput.Value())
	if title == "" {
		m.errorMsg = "Title is required"
		return m, nil
	}
	body := m.bodyInput.Value()
	m.saving = true
	m.errorMsg = ""

	e, ctx := m.engine, m.ctx
	if m.mode == modeCreate {
		in := engine.TaskInput{Title: title, Body: body, Status: m.status, Priority: m.priorityName()}
		if p := e.Board().Project(); p != nil {
			in.ProjectID = p.ID
		}
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			_, err := e.CreateTask(ctx, in)
			return actionDoneMsg{action: "Create", err: err}
		})
	}

	id := m.item.ID
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return actionDoneMsg{action: "Save", err: e.UpdateTask(ctx, id, title, body)}
	})
}

// priorityName is the chosen priority option, or "" for none.
func (m DetailModel) priorityName() string {
	if m.priority < 0 || m.priority >= len(m.priorities) {
		return ""
	}
	return m.priorities[m.priority].Name
}

func (m DetailModel) isDraft() bool {
	return m.item != nil && m.item.Content != nil && m.item.Content.Kind == domain.ContentTypeDraftIssue
}

func (m DetailModel) url() string {
	if m.item == nil || m.item.Content == nil {
		return ""
	}
	return m.item.Content.URL
}

// View renders the split-screen detail view.
func (m DetailModel) View() string {
	width, height := m.width, m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	leftWidth := m.leftWidth(width)
	rightWidth := width - leftWidth - 1
	contentHeight := max(height-headerHeight-footerHeight, 10)

	left := panelBorderStyle.
		Width(leftWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderLeftPanel(leftWidth-borderSize, contentHeight-borderSize))

	rightBorder := panelBorderStyle
	if m.editing() {
		rightBorder = focusedPanelBorderStyle
	}
	right := rightBorder.
		Width(rightWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderRightPanel())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), panels, m.renderFooter(width))
}

func (m DetailModel) renderHeader() string {
	switch {
	case m.confirmExit:
		return warningStyle.Render("Unsaved changes! [Y]discard [N]cancel [S]save")
	case m.mode == modeCreate && len(m.priorities) > 0:
		return DimStyle.Render("[Ctrl+S]save [Tab]switch field [Ctrl+P]priority [ESC]cancel")
	case m.editing():
		return DimStyle.Render("[Ctrl+S]save [Tab]switch field [ESC]cancel")
	}

	parts := []string{"[q]back", "[j/k]scroll"}
	if m.url() != "" {
		parts = append(parts, "[o]open", "[y]copy URL")
	}
	if m.isDraft() {
		parts = append(parts, "[e]edit")
	}
	return DimStyle.Render(strings.Join(parts, " "))
}

func (m DetailModel) renderFooter(width int) string {
	var left string
	switch {
	case m.saving:
		left = m.spinner.View() + " Saving..."
	case m.errorMsg != "":
		left = ErrorStyle.Render("✗ " + m.errorMsg)
	case m.editing():
		left = DimStyle.Render(fmt.Sprintf("%d chars", len(m.bodyInput.Value())))
	}

	right := ""
	if m.mode == modeView && m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			right = "TOP"
		case m.viewport.AtBottom():
			right = "END"
		default:
			right = fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
		}
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return left + strings.Repeat(" ", padding) + DimStyle.Render(right)
}

// renderLeftPanel renders the item metadata.
func (m DetailModel) renderLeftPanel(width, height int) string {
	var b strings.Builder

	if m.mode == modeCreate {
		b.WriteString(detailTitleStyle.Render("New task"))
		b.WriteString("\n\n")
		writeField(&b, "Status", m.status)
		if len(m.priorities) > 0 {
			priority := m.priorityName()
			if priority == "" {
				priority = "None"
			}
			writeField(&b, "Priority", priority+" (ctrl+p)")
		}
		if p := m.engine.Board().Project(); p != nil {
			writeField(&b, "Project", p.Title)
		}
		return b.String()
	}
	if m.item == nil {
		return DimStyle.Render("Item no longer on the board")
	}

	c := m.item.Content
	kind := "Unsupported item"
	if c != nil {
		kind = string(c.Kind)
		if c.Number > 0 {
			kind = fmt.Sprintf("%s #%d", kind, c.Number)
		}
	}
	b.WriteString(detailLabelStyle.Render(kind))
	b.WriteString("\n\n")
	b.WriteString(detailTitleStyle.Render(wordwrap.String(m.item.Title(), width-2)))
	b.WriteString("\n\n")

	writeOptionField(&b, "Status", m.item.Status(), m.optionFor(domain.FieldStatus))
	writeOptionField(&b, "Priority", m.item.Priority(), m.optionFor(domain.FieldPriority))
	if c == nil {
		return b.String()
	}

	if c.State != "" {
		style := detailValueStyle
		switch c.State {
		case "OPEN":
			style = style.Foreground(lipgloss.Color("34"))
		case "CLOSED":
			style = style.Foreground(lipgloss.Color("196"))
		case "MERGED":
			style = style.Foreground(lipgloss.Color("141"))
		}
		b.WriteString(detailLabelStyle.Render("State: "))
		b.WriteString(style.Render(c.State))
		b.WriteString("\n")
	}

	logins := make([]string, 0, len(c.Assignees))
	for _, a := range c.Assignees {
		logins = append(logins, a.Login)
	}
	writeField(&b, "Assigned", wordwrap.String(strings.Join(logins, ", "), width-10))

	labels := make([]string, 0, len(c.Labels))
	for _, l := range c.Labels {
		labels = append(labels, l.Name)
	}
	writeField(&b, "Labels", wordwrap.String(strings.Join(labels, ", "), width-10))

	if c.CreatedAt != "" {
		writeField(&b, "Created", formatTimeAgo(c.CreatedAt))
	}
	if c.UpdatedAt != "" && c.UpdatedAt != c.CreatedAt {
		writeField(&b, "Updated", formatTimeAgo(c.UpdatedAt))
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(detailLabelStyle.Render(label + ": "))
	b.WriteString(detailValueStyle.Render(value))
	b.WriteString("\n")
}

// writeOptionField is writeField with the value drawn in its option's color.
func writeOptionField(b *strings.Builder, label, value string, opt *domain.Option) {
	if value == "" || opt == nil {
		writeField(b, label, value)
		return
	}
	b.WriteString(detailLabelStyle.Render(label + ": "))
	b.WriteString(detailValueStyle.Foreground(optionColor(opt.Color)).Render(opt.Name))
	b.WriteString("\n")
}

// optionFor resolves the option behind the item's value for the field named name,
// or nil when the value is unset or the board's project no longer has that option.
func (m DetailModel) optionFor(name string) *domain.Option {
	if m.item == nil {
		return nil
	}
	fv, ok := m.item.FieldValue(name)
	if !ok || fv.OptionID == "" {
		return nil
	}
	return m.engine.Board().Project().FieldByID(fv.Field.ID).OptionByID(fv.OptionID)
}

func (m DetailModel) renderRightPanel() string {
	if m.editing() {
		return m.titleInput.View() + "\n\n" + m.bodyInput.View()
	}
	if m.item == nil || m.item.Content == nil || strings.TrimSpace(m.item.Content.Body) == "" {
		return DimStyle.Render("No description")
	}
	return m.viewport.View()
}

// updateViewportContent renders the item body as markdown into the viewport.
func (m *DetailModel) updateViewportContent() {
	if m.item == nil || m.item.Content == nil {
		return
	}
	m.viewport.SetContent(renderMarkdown(m.item.Content.Body, m.viewport.Width))
}

// renderMarkdown renders body for a terminal of width cells, falling back to plain wrapping.
func renderMarkdown(body string, width int) string {
	width = max(width, 20)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return wordwrap.String(body, width)
	}
	out, err := r.Render(body)
	if err != nil {
		return wordwrap.String(body, width)
	}
	return strings.TrimRight(out, "\n")
}

// formatTimeAgo converts an ISO 8601 timestamp to a relative time.
func formatTimeAgo(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		if len(timestamp) >= 10 {
			return timestamp[:10]
		}
		return timestamp
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/24/30))
	default:
		return fmt.Sprintf("%dy ago", int(d.Hours()/24/365))
	}
}
