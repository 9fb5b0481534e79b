package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/h0rv/kanbanbar/internal/board"
	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/h0rv/kanbanbar/internal/engine"
	"github.com/muesli/reflow/truncate"
	"github.com/pkg/browser"
)

// Layout constants
const (
	minColumnWidth = 20
	maxColumnWidth = 35
	headerLines    = 2
	pageJumpSize   = 10
)

var (
	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	moveModeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("205")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)
)

// openURL and copyText are replaced in tests.
var (
	openURL  = browser.OpenURL
	copyText = clipboard.WriteAll
)

// BoardModel is the kanban view of the selected project.
type BoardModel struct {
	engine *engine.Engine
	ctx    context.Context

	keymap      KeyMap
	help        HelpModel
	spinner     spinner.Model
	searchInput textinput.Model

	columns        []board.Column
	selectedColumn int
	columnOffset   int
	selectedCard   map[string]int // column name -> selected card index
	scrollOffset   map[string]int // column name -> first visible card

	width      int
	height     int
	showHelp   bool
	searchMode bool
	moveMode   bool
	pending    string
	toast      string
	toastErr   bool
}

// NewBoardModel creates the board view over e's board.
func NewBoardModel(e *engine.Engine, ctx context.Context) BoardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Search titles..."
	ti.Prompt = "/ "
	ti.SetValue(e.Board().Search())

	m := BoardModel{
		engine:       e,
		ctx:          ctx,
		keymap:       DefaultKeyMap(),
		help:         NewHelpModel(DefaultKeyMap()),
		spinner:      sp,
		searchInput:  ti,
		selectedCard: make(map[string]int),
		scrollOffset: make(map[string]int),
	}
	m.rebuild()
	return m
}

// Init starts the spinner and asks for the window size.
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize())
}

// Update handles messages.
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.adjustColumnScroll()
		return m, nil

	case actionDoneMsg:
		m.pending = ""
		m.moveMode = false
		if msg.err != nil {
			m.setToast(fmt.Sprintf("%s failed: %v", msg.action, msg.err), true)
		} else {
			m.setToast(msg.action+" done", false)
		}
		m.rebuild()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

func (m BoardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "q", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	if m.searchMode {
		switch msg.String() {
		case "enter":
			m.searchMode = false
			m.searchInput.Blur()
			m.engine.Board().SetSearch(m.searchInput.Value())
			m.resetScroll()
			m.rebuild()
			return m, nil
		case "esc":
			m.searchMode = false
			m.searchInput.Blur()
			m.searchInput.SetValue(m.engine.Board().Search())
			return m, nil
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}
	}

	if m.moveMode {
		return m.handleMoveMode(msg)
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
	case key.Matches(msg, m.keymap.Search):
		m.searchMode = true
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keymap.Filter):
		m.cycleFilter()
	case key.Matches(msg, m.keymap.Left):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.adjustColumnScroll()
		}
	case key.Matches(msg, m.keymap.Right):
		if m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			m.adjustColumnScroll()
		}
	case key.Matches(msg, m.keymap.Down):
		m.moveCardSelection(1)
	case key.Matches(msg, m.keymap.Up):
		m.moveCardSelection(-1)
	case key.Matches(msg, m.keymap.Top):
		m.jumpToCard(0)
	case key.Matches(msg, m.keymap.Bottom):
		m.jumpToCard(-1)
	case msg.String() == "ctrl+d":
		m.moveCardSelection(pageJumpSize)
	case msg.String() == "ctrl+u":
		m.moveCardSelection(-pageJumpSize)
	case key.Matches(msg, m.keymap.Move):
		if m.selectedItem() != nil {
			m.moveMode = true
		}
	case key.Matches(msg, m.keymap.Open):
		if u := m.selectedURL(); u != "" {
			if err := openURL(u); err != nil {
				m.setToast("Open failed: "+err.Error(), true)
			}
		}
	case key.Matches(msg, m.keymap.Copy):
		if u := m.selectedURL(); u != "" {
			if err := copyText(u); err != nil {
				m.setToast("Copy failed: "+err.Error(), true)
			} else {
				m.setToast("Copied "+u, false)
			}
		}
	case key.Matches(msg, m.keymap.View):
		if it := m.selectedItem(); it != nil {
			id := it.ID
			return m, func() tea.Msg { return openDetailMsg{itemID: id} }
		}
	case key.Matches(msg, m.keymap.New):
		status := ""
		if len(m.columns) > 0 {
			status = m.columns[m.selectedColumn].Name
		}
		return m, func() tea.Msg { return openCreateMsg{status: status} }
	case key.Matches(msg, m.keymap.Project):
		return m, func() tea.Msg { return openPickerMsg{} }
	case key.Matches(msg, m.keymap.Ask):
		return m, func() tea.Msg { return openPromptMsg{} }
	case key.Matches(msg, m.keymap.Refresh):
		m.pending = "Refreshing"
		return m, tea.Batch(m.spinner.Tick, m.refresh())
	}

	return m, nil
}

func (m BoardModel) handleMoveMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.moveMode = false
		return m, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.Runes[0] - '1')
		if idx < len(m.columns) {
			m.moveMode = false
			cmd := m.moveSelected(m.columns[idx].Name)
			return m, cmd
		}
	}
	return m, nil
}

// View renders the board to fill the terminal.
func (m BoardModel) View() string {
	width, height := m.width, m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	sections := []string{m.renderHeader(width), m.renderSecondHeader(width)}
	boardHeight := height - headerLines

	if m.searchMode {
		sections = append(sections, m.searchInput.View())
		boardHeight--
	}
	if m.moveMode {
		sections = append(sections, moveModeStyle.Render("MOVE")+" Press 1-9 to select column, ESC to cancel")
		boardHeight--
	}
	if boardHeight < 5 {
		boardHeight = 5
	}

	var main string
	switch {
	case m.showHelp:
		lines := strings.Split(m.help.View(width), "\n")
		if len(lines) > boardHeight {
			lines = lines[:boardHeight]
		}
		main = strings.Join(lines, "\n")
	case m.engine.Board().Project() == nil:
		main = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, "No project selected. Press 'p' to pick one.")
	case len(m.columns) == 0:
		main = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, "This project has no Status options. Press 'r' to refresh.")
	default:
		main = m.renderBoard(width, boardHeight)
	}
	sections = append(sections, main)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BoardModel) renderHeader(width int) string {
	project := m.engine.Board().Project()
	if project == nil {
		return titleStyle.Render("kanbanbar")
	}
	title := fmt.Sprintf("#%d %s", project.Number, project.Title)

	var parts []string
	if m.pending != "" {
		parts = append(parts, m.spinner.View()+m.pending)
	}
	total := 0
	for _, col := range m.columns {
		total += len(col.Items)
	}
	parts = append(parts, fmt.Sprintf("%d items", total))
	if f := m.engine.Board().Filter(); f != board.FilterAll {
		parts = append(parts, f.Label())
	}
	if s := m.engine.Board().Search(); s != "" {
		parts = append(parts, "/"+s)
	}
	parts = append(parts, "[a]ask [?]help")
	status := strings.Join(parts, " | ")

	padding := width - lipgloss.Width(title) - lipgloss.Width(status) - 2
	if padding < 1 {
		padding = 1
	}
	return titleStyle.Render(title) + strings.Repeat(" ", padding) + DimStyle.Render(status)
}

func (m BoardModel) renderSecondHeader(width int) string {
	left := "h/l:col j/k:card m:move enter:view n:new o:open y:copy"

	right := ""
	switch {
	case m.toast != "" && m.toastErr:
		right = ErrorStyle.Render(m.toast)
	case m.toast != "":
		right = SuccessStyle.Render(m.toast)
	case len(m.columns) > 0:
		col := m.columns[m.selectedColumn]
		right = fmt.Sprintf("col %d/%d", m.selectedColumn+1, len(m.columns))
		if len(col.Items) > 0 {
			right += fmt.Sprintf(" | card %d/%d", m.selectedCard[col.Name]+1, len(col.Items))
		}
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return DimStyle.Render(left) + strings.Repeat(" ", padding) + right
}

// renderBoard lays out the visible columns, scrolling horizontally when they overflow.
func (m BoardModel) renderBoard(totalWidth, totalHeight int) string {
	numCols := len(m.columns)
	colContentHeight := totalHeight - 2
	if colContentHeight < 3 {
		colContentHeight = 3
	}

	visibleCols := m.visibleColumns(totalWidth)
	colWidth := totalWidth / visibleCols
	if colWidth > maxColumnWidth {
		colWidth = maxColumnWidth
	}
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}
	innerWidth := colWidth - 4
	if innerWidth < 10 {
		innerWidth = 10
	}

	startCol := m.columnOffset
	endCol := startCol + visibleCols
	if endCol > numCols {
		endCol = numCols
		startCol = max(endCol-visibleCols, 0)
	}

	views := make([]string, 0, visibleCols+2)
	if startCol > 0 {
		views = append(views, scrollIndicator("◀", colContentHeight+2))
	}
	for i := startCol; i < endCol; i++ {
		views = append(views, m.renderColumn(i, colWidth, colContentHeight, innerWidth))
	}
	if endCol < numCols {
		views = append(views, scrollIndicator("▶", colContentHeight+2))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

func scrollIndicator(arrow string, height int) string {
	return lipgloss.NewStyle().
		Width(2).
		Height(height).
		Foreground(lipgloss.Color("205")).
		Align(lipgloss.Center, lipgloss.Center).
		Render(arrow)
}

// renderColumn renders column idx. innerHeight excludes the border.
func (m BoardModel) renderColumn(idx, width, innerHeight, innerWidth int) string {
	col := m.columns[idx]
	selected := idx == m.selectedColumn

	header := truncate.StringWithTail(fmt.Sprintf("[%d] %s (%d)", idx+1, col.Name, len(col.Items)), uint(innerWidth), "…")
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(optionColor(col.Color)).Render(header)}

	offset := m.scrollOffset[col.Name]
	slots := innerHeight - 1
	if offset > 0 {
		lines = append(lines, DimStyle.Render(fmt.Sprintf("↑ %d more", offset)))
		slots--
	}
	end := min(offset+slots, len(col.Items))
	if end < len(col.Items) {
		end = min(offset+slots-1, len(col.Items))
	}
	end = max(end, offset)

	for i := offset; i < end; i++ {
		text := formatCardText(col.Items[i], innerWidth-2)
		if selected && i == m.selectedCard[col.Name] {
			lines = append(lines, selectedCardStyle.Render("> "+text))
		} else {
			lines = append(lines, cardStyle.Render("  "+text))
		}
	}
	if rest := len(col.Items) - end; rest > 0 {
		lines = append(lines, DimStyle.Render(fmt.Sprintf("↓ %d more", rest)))
	}
	if len(col.Items) == 0 {
		lines = append(lines, DimStyle.Render("(empty)"))
	}

	border := lipgloss.Color("240")
	if selected {
		border = lipgloss.Color("205")
	}
	return lipgloss.NewStyle().
		Width(width-2).
		Height(innerHeight).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Render(strings.Join(lines, "\n"))
}

// formatCardText renders an item on one line of maxWidth cells with its number or kind
// right-aligned.
func formatCardText(it domain.Item, maxWidth int) string {
	title := it.Title()
	if title == "" {
		title = "Untitled"
	}
	suffix := ""
	if c := it.Content; c != nil {
		switch c.Kind {
		case domain.ContentTypeIssue, domain.ContentTypePullRequest:
			if c.Number > 0 {
				suffix = fmt.Sprintf("#%d", c.Number)
			}
		case domain.ContentTypeDraftIssue:
			suffix = "(draft)"
		}
	}
	if strings.Contains(strings.ToLower(it.Priority()), "high") {
		title = "! " + title
	}

	if suffix == "" {
		return truncate.StringWithTail(title, uint(maxWidth), "…")
	}

	avail := max(maxWidth-lipgloss.Width(suffix)-1, 5)
	title = truncate.StringWithTail(title, uint(avail), "…")
	padding := max(maxWidth-lipgloss.Width(title)-lipgloss.Width(suffix), 1)
	return title + strings.Repeat(" ", padding) + DimStyle.Render(suffix)
}

// rebuild re-reads the board projection and clamps the selection.
func (m *BoardModel) rebuild() {
	m.columns = m.engine.Board().Snapshot()
	if m.selectedColumn >= len(m.columns) {
		m.selectedColumn = max(len(m.columns)-1, 0)
	}
	for _, col := range m.columns {
		if m.selectedCard[col.Name] >= len(col.Items) {
			m.selectedCard[col.Name] = max(len(col.Items)-1, 0)
		}
		if m.scrollOffset[col.Name] > m.selectedCard[col.Name] {
			m.scrollOffset[col.Name] = m.selectedCard[col.Name]
		}
	}
}

func (m *BoardModel) resetScroll() {
	for name := range m.scrollOffset {
		m.scrollOffset[name] = 0
	}
}

func (m *BoardModel) cycleFilter() {
	filters := board.Filters()
	current := m.engine.Board().Filter()
	for i, f := range filters {
		if f == current {
			m.engine.Board().SetFilter(filters[(i+1)%len(filters)])
			break
		}
	}
	m.resetScroll()
	m.rebuild()
}

func (m *BoardModel) setToast(text string, isErr bool) {
	m.toast = text
	m.toastErr = isErr
}

func (m *BoardModel) moveCardSelection(delta int) {
	if len(m.columns) == 0 {
		return
	}
	col := m.columns[m.selectedColumn]
	if len(col.Items) == 0 {
		return
	}
	idx := m.selectedCard[col.Name] + delta
	idx = max(min(idx, len(col.Items)-1), 0)
	m.selectedCard[col.Name] = idx
	m.adjustScroll(col.Name)
}

// jumpToCard selects card idx of the current column; -1 selects the last.
func (m *BoardModel) jumpToCard(idx int) {
	if len(m.columns) == 0 {
		return
	}
	col := m.columns[m.selectedColumn]
	if len(col.Items) == 0 {
		return
	}
	if idx < 0 || idx >= len(col.Items) {
		idx = len(col.Items) - 1
	}
	m.selectedCard[col.Name] = idx
	m.adjustScroll(col.Name)
}

// adjustScroll keeps the selected card of column name visible.
func (m *BoardModel) adjustScroll(name string) {
	visible := m.height - headerLines - 2 - 3
	if m.moveMode {
		visible--
	}
	if m.searchMode {
		visible--
	}
	if visible < 3 {
		visible = 3
	}

	sel := m.selectedCard[name]
	if sel < m.scrollOffset[name] {
		m.scrollOffset[name] = sel
	}
	if sel >= m.scrollOffset[name]+visible {
		m.scrollOffset[name] = sel - visible + 1
	}
}

func (m BoardModel) visibleColumns(width int) int {
	n := width / minColumnWidth
	if n < 1 {
		n = 1
	}
	if n > len(m.columns) {
		n = len(m.columns)
	}
	return max(n, 1)
}

// adjustColumnScroll keeps the selected column inside the visible range.
func (m *BoardModel) adjustColumnScroll() {
	if len(m.columns) == 0 || m.width == 0 {
		return
	}
	visible := m.visibleColumns(m.width)
	if m.selectedColumn < m.columnOffset {
		m.columnOffset = m.selectedColumn
	}
	if m.selectedColumn >= m.columnOffset+visible {
		m.columnOffset = m.selectedColumn - visible + 1
	}
}

// selectedItem returns the selected card, or nil.
func (m BoardModel) selectedItem() *domain.Item {
	if len(m.columns) == 0 {
		return nil
	}
	col := m.columns[m.selectedColumn]
	if len(col.Items) == 0 {
		return nil
	}
	idx := m.selectedCard[col.Name]
	if idx >= len(col.Items) {
		idx = 0
	}
	it := col.Items[idx]
	return &it
}

func (m BoardModel) selectedURL() string {
	it := m.selectedItem()
	if it == nil || it.Content == nil {
		return ""
	}
	return it.Content.URL
}

// moveSelected shows the card in column status at once and sends the move in the background.
func (m *BoardModel) moveSelected(status string) tea.Cmd {
	it := m.selectedItem()
	if it == nil || it.Status() == status {
		return nil
	}
	mv, err := m.engine.BeginMove(it.ID, status)
	if err != nil {
		m.setToast(fmt.Sprintf("Move failed: %v", err), true)
		return nil
	}
	m.pending = "Moving"
	m.rebuild()
	m.selectCard(it.ID)
	m.adjustColumnScroll()

	ctx := m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return actionDoneMsg{action: "Move", err: mv.Commit(ctx)}
	})
}

// selectCard moves the selection onto the card with id, wherever it is shown.
func (m *BoardModel) selectCard(id string) {
	for i, col := range m.columns {
		for j := range col.Items {
			if col.Items[j].ID == id {
				m.selectedColumn = i
				m.selectedCard[col.Name] = j
				return
			}
		}
	}
}

func (m BoardModel) refresh() tea.Cmd {
	e, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: "Refresh", err: e.Refresh(ctx)}
	}
}
