// Package tui provides Bubble Tea models for the interactive board.
package tui

import "github.com/h0rv/kanbanbar/internal/domain"

// ProjectSelectedMsg is emitted when the user selects a project.
type ProjectSelectedMsg struct {
	Project domain.Project
}

// ErrorMsg is emitted when an error occurs.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// Screen transitions and async results.
type (
	projectsLoadedMsg struct {
		projects []domain.Project
	}

	// actionDoneMsg reports the outcome of an engine action started from any screen.
	actionDoneMsg struct {
		action string
		err    error
	}

	openDetailMsg  struct{ itemID string }
	openCreateMsg  struct{ status string }
	closeDetailMsg struct{}
	openPromptMsg  struct{}
	closePromptMsg struct{}
	openPickerMsg  struct{}
)
