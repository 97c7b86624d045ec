// Package tui provides Bubble Tea models for the interactive TUI.
package tui

import (
	"github.com/robby/pjm/internal/dashboard"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/planner"
)

// ProjectSelectedMsg is emitted when the user picks a project to plan.
type ProjectSelectedMsg struct {
	ProjectNumber string
}

// ErrorMsg is emitted when an error occurs that ends the session.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// BackMsg returns to the dashboard.
type BackMsg struct{}

// Custom messages between screens.
type (
	dashboardLoadedMsg struct {
		dashboard dashboard.Dashboard
	}

	openPickerMsg struct {
		projects []domain.GatewayRow
	}

	planLoadedMsg struct {
		plan domain.TaskPlan
	}

	planFailedMsg struct {
		project string
		err     error
	}

	commitDoneMsg struct {
		result planner.CommitResult
		err    error
	}
)
