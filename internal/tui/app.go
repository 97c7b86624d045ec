package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robby/pjm/internal/dashboard"
	"github.com/robby/pjm/internal/planner"
	"github.com/robby/pjm/internal/session"
)

// AppScreen represents the different screens in the application flow.
type AppScreen int

const (
	ScreenLoading AppScreen = iota
	ScreenDashboard
	ScreenProjectPicker
	ScreenPlan
)

// AppModel is the root Bubble Tea model that manages screen transitions.
// It orchestrates the flow dashboard -> project picker -> plan editor and back.
type AppModel struct {
	// Dependencies
	service *planner.Service
	loader  *dashboard.Loader
	sess    *session.Session
	ctx     context.Context

	// Identity and CLI flags
	lead        string
	projectFlag string
	commitOpts  planner.CommitOptions

	// Current state
	currentScreen AppScreen
	currentModel  tea.Model
	err           error
	loadingMsg    string
	notice        string // shown above every screen

	// Cached models to preserve state across screen transitions
	dashboardModel *DashboardModel
}

// NewAppModel creates the app for lead. A non-empty projectFlag skips the
// dashboard and opens that project's plan directly.
func NewAppModel(service *planner.Service, loader *dashboard.Loader, ctx context.Context, lead, projectFlag string, opts planner.CommitOptions) AppModel {
	return AppModel{
		service:       service,
		loader:        loader,
		sess:          session.New(),
		ctx:           ctx,
		lead:          lead,
		projectFlag:   projectFlag,
		commitOpts:    opts,
		currentScreen: ScreenLoading,
		loadingMsg:    "Connecting to ABAS...",
	}
}

// WithNotice returns the app with a warning line shown above every screen.
func (m AppModel) WithNotice(notice string) AppModel {
	m.notice = notice
	return m
}

// Init initializes the app model.
func (m AppModel) Init() tea.Cmd {
	if m.projectFlag != "" {
		return m.loadPlan(m.projectFlag)
	}
	return func() tea.Msg { return BackMsg{} }
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

	case BackMsg:
		m.currentScreen = ScreenDashboard
		if m.dashboardModel == nil {
			dm := NewDashboardModel(m.loader, m.lead, m.ctx)
			m.dashboardModel = &dm
			m.currentModel = dm
			return m, dm.Init()
		}
		m.currentModel = *m.dashboardModel
		return m, tea.WindowSize()

	case openPickerMsg:
		m.currentScreen = ScreenProjectPicker
		picker := NewProjectPickerModel(msg.projects)
		m.currentModel = picker
		return m, picker.Init()

	case ProjectSelectedMsg:
		if m.sess.State() == session.Committed {
			m.sess = session.New()
		}
		m.currentScreen = ScreenLoading
		m.currentModel = nil
		m.loadingMsg = fmt.Sprintf("Loading milestones and hours for %s...", msg.ProjectNumber)
		return m, m.loadPlan(msg.ProjectNumber)

	case planLoadedMsg:
		m.currentScreen = ScreenPlan
		editor := NewPlanEditorModel(m.service, m.sess, m.ctx, m.commitOpts)
		m.currentModel = editor
		return m, editor.Init()

	case planFailedMsg:
		// Back to the dashboard with the reason shown there.
		m.currentScreen = ScreenDashboard
		if m.dashboardModel == nil {
			dm := NewDashboardModel(m.loader, m.lead, m.ctx)
			m.dashboardModel = &dm
		}
		updated, _ := m.dashboardModel.Update(msg)
		dm := updated.(DashboardModel)
		m.dashboardModel = &dm
		m.currentModel = dm
		return m, tea.Batch(dm.Init(), tea.WindowSize())
	}

	// Delegate to current screen's model
	if m.currentModel != nil {
		var cmd tea.Cmd
		m.currentModel, cmd = m.currentModel.Update(msg)
		// Keep dashboardModel in sync when on the dashboard
		if m.currentScreen == ScreenDashboard {
			if dm, ok := m.currentModel.(DashboardModel); ok {
				m.dashboardModel = &dm
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

	view := m.loadingMsg + "\n\nPress Ctrl+C to quit"
	if m.currentModel != nil {
		view = m.currentModel.View()
	}
	if m.notice != "" {
		view = WarningStyle.Render("⚠ "+m.notice) + "\n" + view
	}
	return view
}

// loadPlan fetches the project's ERP data and drafts its plan.
func (m AppModel) loadPlan(projectNumber string) tea.Cmd {
	service, sess, ctx, lead := m.service, m.sess, m.ctx, m.lead
	return func() tea.Msg {
		plan, err := service.Load(ctx, sess, projectNumber, lead)
		if err != nil {
			return planFailedMsg{project: projectNumber, err: err}
		}
		return planLoadedMsg{plan: plan}
	}
}
