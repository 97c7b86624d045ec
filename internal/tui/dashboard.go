package tui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/pjm/internal/dashboard"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/output"
)

// DashboardModel shows the lead's overview and is the entry point to planning.
type DashboardModel struct {
	loader *dashboard.Loader
	lead   string
	ctx    context.Context

	spinner  spinner.Model
	viewport viewport.Model
	input    textinput.Model

	data       *dashboard.Dashboard
	loading    bool
	prompting  bool
	width      int
	height     int
	errorToast string
}

// NewDashboardModel creates the dashboard screen for lead.
func NewDashboardModel(loader *dashboard.Loader, lead string, ctx context.Context) DashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "P24-0815"
	ti.Prompt = "project: "
	ti.CharLimit = 32

	return DashboardModel{
		loader:   loader,
		lead:     lead,
		ctx:      ctx,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		input:    ti,
		loading:  true,
	}
}

// Init starts loading the dashboard.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize(), m.load())
}

func (m DashboardModel) load() tea.Cmd {
	loader, ctx, lead := m.loader, m.ctx, m.lead
	return func() tea.Msg {
		return dashboardLoadedMsg{dashboard: loader.Load(ctx, lead)}
	}
}

// Update handles messages.
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 3)
		(&m).refreshContent()
		return m, nil

	case dashboardLoadedMsg:
		m.loading = false
		d := msg.dashboard
		m.data = &d
		(&m).refreshContent()
		return m, nil

	case planFailedMsg:
		m.errorToast = fmt.Sprintf("Could not plan %s: %v", msg.project, msg.err)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.prompting {
		switch msg.String() {
		case "enter":
			number := strings.TrimSpace(m.input.Value())
			m.prompting = false
			m.input.Blur()
			if number == "" {
				return m, nil
			}
			return m, func() tea.Msg { return ProjectSelectedMsg{ProjectNumber: number} }
		case "esc":
			m.prompting = false
			m.input.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		m.loading = true
		m.errorToast = ""
		return m, tea.Batch(m.spinner.Tick, m.load())
	case "n":
		m.prompting = true
		m.input.SetValue("")
		m.errorToast = ""
		return m, m.input.Focus()
	case "p":
		projects := m.pickableProjects()
		if len(projects) == 0 {
			m.errorToast = "No projects to pick from"
			return m, nil
		}
		return m, func() tea.Msg { return openPickerMsg{projects: projects} }
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// pickableProjects returns the lead's projects followed by the sold ones not already listed.
func (m DashboardModel) pickableProjects() []domain.GatewayRow {
	if m.data == nil {
		return nil
	}
	seen := make(map[string]bool)
	var projects []domain.GatewayRow
	for _, rows := range [][]domain.GatewayRow{m.data.LeadProjects.Rows, m.data.SoldPhase.Rows} {
		for _, r := range rows {
			if r.ProjectNumber == "" || seen[r.ProjectNumber] {
				continue
			}
			seen[r.ProjectNumber] = true
			projects = append(projects, r)
		}
	}
	return projects
}

func (m *DashboardModel) refreshContent() {
	if m.data == nil {
		return
	}
	var buf bytes.Buffer
	f, err := output.NewFormatter(output.FormatText, &output.Options{
		Writer:   &buf,
		Width:    m.viewport.Width,
		Renderer: lipgloss.DefaultRenderer(),
	})
	if err == nil {
		err = f.Format(output.NewDashboardView(*m.data))
	}
	if err != nil {
		m.viewport.SetContent(ErrorStyle.Render(err.Error()))
		return
	}
	m.viewport.SetContent(buf.String())
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	var sections []string

	status := "n: new plan  p: pick project  r: refresh  q: quit"
	if m.data != nil {
		if failed := m.data.Failures(); failed > 0 {
			status = fmt.Sprintf("%d section(s) unavailable | %s", failed, status)
		}
	}
	sections = append(sections, titleStyle.Render("pjm "+m.lead)+"  "+dimStyle.Render(status))

	if m.loading && m.data == nil {
		sections = append(sections, m.spinner.View()+" Loading dashboard...")
	} else {
		sections = append(sections, m.viewport.View())
	}

	if m.prompting {
		sections = append(sections, m.input.View())
	}
	if m.errorToast != "" {
		sections = append(sections, ErrorStyle.Render(m.errorToast))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
