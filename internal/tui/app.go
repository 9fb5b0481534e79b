package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/kanbanbar/internal/copilot"
	"github.com/h0rv/kanbanbar/internal/engine"
)

// AppScreen represents the different screens in the application flow.
type AppScreen int

const (
	ScreenLoading AppScreen = iota
	ScreenProjectPicker
	ScreenBoard
	ScreenDetail
	ScreenPrompt
)

// AppModel is the root Bubble Tea model that manages screen transitions.
// The flow is loading -> project picker (skipped for a single project or --project) -> board,
// with the detail editor and the copilot opened from the board.
type AppModel struct {
	engine  *engine.Engine
	copilot *copilot.Copilot
	ctx     context.Context

	// projectRef pre-selects a project by ID, number or title.
	projectRef string

	currentScreen AppScreen
	currentModel  tea.Model
	err           error
	loadingMsg    string

	boardModel *BoardModel
}

// NewAppModel creates the root model. An empty projectRef shows the picker when there is
// more than one project.
func NewAppModel(e *engine.Engine, c *copilot.Copilot, ctx context.Context, projectRef string) AppModel {
	return AppModel{
		engine:        e,
		copilot:       c,
		ctx:           ctx,
		projectRef:    projectRef,
		currentScreen: ScreenLoading,
		loadingMsg:    "Loading projects from GitHub...",
	}
}

// Init starts loading the projects.
func (m AppModel) Init() tea.Cmd {
	return m.loadProjects()
}

// Update handles messages and transitions between screens.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.currentModel == nil {
			return m, tea.Quit
		}

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case projectsLoadedMsg:
		if m.projectRef != "" {
			p, err := m.engine.Store().FindProject(m.projectRef)
			if err != nil {
				m.err = err
				return m, nil
			}
			return m.showBoard(p.ID)
		}
		if len(msg.projects) == 1 {
			return m.showBoard(msg.projects[0].ID)
		}
		return m.showPicker()

	case ProjectSelectedMsg:
		return m.showBoard(msg.Project.ID)

	case openPickerMsg:
		return m.showPicker()

	case openDetailMsg:
		m.currentScreen = ScreenDetail
		detail := NewDetailModel(m.engine, m.ctx, msg.itemID)
		m.currentModel = detail
		return m, detail.Init()

	case openCreateMsg:
		if m.engine.Board().Project() == nil {
			return m, nil
		}
		m.currentScreen = ScreenDetail
		detail := NewCreateModel(m.engine, m.ctx, msg.status)
		m.currentModel = detail
		return m, detail.Init()

	case openPromptMsg:
		m.currentScreen = ScreenPrompt
		prompt := NewPromptModel(m.copilot, m.ctx)
		m.currentModel = prompt
		return m, prompt.Init()

	case closeDetailMsg, closePromptMsg:
		return m.returnToBoard()
	}

	if m.currentModel != nil {
		var cmd tea.Cmd
		m.currentModel, cmd = m.currentModel.Update(msg)
		if m.currentScreen == ScreenBoard {
			if bm, ok := m.currentModel.(BoardModel); ok {
				m.boardModel = &bm
			}
		}
		return m, cmd
	}

	return m, nil
}

// View renders the current screen.
func (m AppModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Ctrl+C to quit", m.err))
	}
	if m.currentModel != nil {
		return m.currentModel.View()
	}
	return m.loadingMsg + "\n\nPress Ctrl+C to quit"
}

func (m AppModel) showPicker() (tea.Model, tea.Cmd) {
	m.currentScreen = ScreenProjectPicker
	picker := NewProjectPickerModel(m.engine.Store().CurrentProjects())
	m.currentModel = picker
	return m, picker.Init()
}

// showBoard selects the project with id and switches to the board.
func (m AppModel) showBoard(id string) (tea.Model, tea.Cmd) {
	p := m.engine.Store().ProjectByID(id)
	if p == nil {
		m.err = fmt.Errorf("project %s is no longer available", id)
		return m, nil
	}
	m.engine.Board().SetProject(p)

	bm := NewBoardModel(m.engine, m.ctx)
	m.boardModel = &bm
	m.currentScreen = ScreenBoard
	m.currentModel = bm
	return m, bm.Init()
}

// returnToBoard shows the cached board again, re-read from the projection.
func (m AppModel) returnToBoard() (tea.Model, tea.Cmd) {
	if m.boardModel == nil {
		return m.showPicker()
	}
	m.boardModel.rebuild()
	m.currentScreen = ScreenBoard
	m.currentModel = *m.boardModel
	return m, tea.WindowSize()
}

// loadProjects fetches every project. A failed full fetch still proceeds when the store
// could install the summary fallback.
func (m AppModel) loadProjects() tea.Cmd {
	e := m.engine
	ctx := m.ctx
	return func() tea.Msg {
		err := e.Refresh(ctx)
		projects := e.Store().CurrentProjects()
		switch {
		case len(projects) == 0 && err != nil:
			return ErrorMsg{Err: fmt.Errorf("failed to load projects: %w", err)}
		case len(projects) == 0:
			return ErrorMsg{Err: errors.New("no projects found for this account")}
		}
		return projectsLoadedMsg{projects: projects}
	}
}
