package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/kanbanbar/internal/board"
	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/muesli/reflow/truncate"
)

// projectEntry is one row of the picker.
type projectEntry struct {
	project domain.Project
}

// FilterValue matches on number and title, so both "#3" and "road" find a project.
func (e projectEntry) FilterValue() string {
	return fmt.Sprintf("#%d %s", e.project.Number, e.project.Title)
}

// summary counts the project's cards per column, e.g. "Todo 2 · Done 1".
func (e projectEntry) summary() string {
	cols := board.Columns(&e.project)
	if len(cols) == 0 {
		return fmt.Sprintf("%d items · no Status field", len(e.project.Items))
	}
	parts := make([]string, 0, len(cols))
	for _, opt := range cols {
		n := 0
		for i := range e.project.Items {
			if e.project.Items[i].Status() == opt.Name {
				n++
			}
		}
		parts = append(parts, fmt.Sprintf("%s %d", opt.Name, n))
	}
	return strings.Join(parts, " · ")
}

type projectDelegate struct{}

func (d projectDelegate) Height() int                             { return 2 }
func (d projectDelegate) Spacing() int                            { return 1 }
func (d projectDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	e, ok := item.(projectEntry)
	if !ok {
		return
	}

	width := uint(max(m.Width()-4, 10))
	title := truncate.StringWithTail(e.FilterValue(), width, "…")
	summary := truncate.StringWithTail(e.summary(), width, "…")

	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle.Render("> "+title))
		fmt.Fprint(w, "\n  "+NormalItemStyle.Render(summary))
		return
	}
	fmt.Fprint(w, NormalItemStyle.Render("  "+title))
	fmt.Fprint(w, "\n  "+DimStyle.Render(summary))
}

// ProjectPickerModel lists the viewer's projects for selection.
type ProjectPickerModel struct {
	list list.Model
	err  error
}

// NewProjectPickerModel creates a picker over projects.
func NewProjectPickerModel(projects []domain.Project) ProjectPickerModel {
	entries := make([]list.Item, len(projects))
	for i, p := range projects {
		entries[i] = projectEntry{project: p}
	}

	l := list.New(entries, projectDelegate{}, 80, 20)
	l.Title = "Select a Project"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle

	return ProjectPickerModel{list: l}
}

// Init initializes the model.
func (m ProjectPickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages and updates the model state.
func (m ProjectPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 2)
		m.list.SetHeight(msg.Height - 2)
		return m, nil

	case tea.KeyMsg:
		// Keys belong to the filter input while it is open.
		if m.list.FilterState() == list.Filtering {
			break
		}
		e, selected := m.list.SelectedItem().(projectEntry)
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, func() tea.Msg { return QuitMsg{} }
		case "enter":
			if selected {
				return m, func() tea.Msg { return ProjectSelectedMsg{Project: e.project} }
			}
		case "o":
			if selected && e.project.URL != "" {
				if err := openURL(e.project.URL); err != nil {
					m.err = fmt.Errorf("failed to open browser: %w", err)
				}
			}
			return m, nil
		}

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list with its key hints.
func (m ProjectPickerModel) View() string {
	view := m.list.View() + "\n" + DimStyle.Render("[enter]open board [o]open in browser [/]filter [q]quit")
	if m.err != nil {
		view += ErrorStyle.Render(fmt.Sprintf("\nError: %v", m.err))
	}
	return view
}
