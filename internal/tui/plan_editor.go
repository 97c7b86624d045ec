package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/hours"
	"github.com/robby/pjm/internal/planner"
	"github.com/robby/pjm/internal/session"
)

// Column widths of the plan table.
const (
	deptColumnWidth  = 20
	hoursColumnWidth = 8
	dateColumnWidth  = 12
	typeColumnWidth  = 6
	minLabelWidth    = 12
)

// editField is the row attribute currently being edited.
type editField int

const (
	fieldNone editField = iota
	fieldHours
	fieldLabel
	fieldStart
	fieldEnd
	fieldDepartment
	fieldAdd
)

func (f editField) prompt() string {
	switch f {
	case fieldHours:
		return "hours: "
	case fieldLabel:
		return "label: "
	case fieldStart:
		return "start (DD.MM.YYYY): "
	case fieldEnd:
		return "end (DD.MM.YYYY): "
	case fieldDepartment:
		return "department: "
	case fieldAdd:
		return "new row department: "
	default:
		return ""
	}
}

// PlanEditorModel shows a drafted plan and lets the user edit and commit it.
type PlanEditorModel struct {
	// Dependencies
	service *planner.Service
	sess    *session.Session
	ctx     context.Context

	// UI components
	keymap  KeyMap
	help    HelpModel
	spinner spinner.Model
	input   textinput.Model

	// Plan state
	plan   domain.TaskPlan
	rows   []domain.TaskRow // plan.All(), cached for rendering
	cursor int
	opts   planner.CommitOptions

	// View state
	width         int
	height        int
	showHelp      bool
	editing       editField
	editRowID     string
	confirmCommit bool
	committing    bool
	committed     *planner.CommitResult
	errorToast    string
}

// NewPlanEditorModel creates an editor for the session's current plan.
func NewPlanEditorModel(service *planner.Service, sess *session.Session, ctx context.Context, opts planner.CommitOptions) PlanEditorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.CharLimit = 80

	m := PlanEditorModel{
		service: service,
		sess:    sess,
		ctx:     ctx,
		keymap:  DefaultKeyMap(),
		help:    NewHelpModel(DefaultKeyMap()),
		spinner: sp,
		input:   ti,
		opts:    opts,
	}
	if plan, err := sess.Plan(); err == nil {
		m.setPlan(plan)
	}
	return m
}

// Init initializes the editor.
func (m PlanEditorModel) Init() tea.Cmd {
	return tea.WindowSize()
}

func (m *PlanEditorModel) setPlan(plan domain.TaskPlan) {
	m.plan = plan
	m.rows = plan.All()
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m PlanEditorModel) selectedRow() (domain.TaskRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return domain.TaskRow{}, false
	}
	return m.rows[m.cursor], true
}

// Update handles messages.
func (m PlanEditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.committing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case commitDoneMsg:
		m.committing = false
		if msg.err != nil {
			var commitErr *planner.CommitError
			switch {
			case errors.Is(msg.err, planner.ErrReleaseFailed):
				result := msg.result
				m.committed = &result
				m.errorToast = fmt.Sprintf("%v (c: retry release)", msg.err)
			case errors.As(msg.err, &commitErr):
				m.errorToast = fmt.Sprintf("Commit stopped at row %d: %v (%d task(s) already created, c: resume)",
					commitErr.Index+1, commitErr.Err, len(commitErr.Partial.TaskIDs))
			default:
				m.errorToast = fmt.Sprintf("Commit failed: %v", msg.err)
			}
			return m, nil
		}
		result := msg.result
		m.committed = &result
		m.errorToast = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m PlanEditorModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ConfirmQuit) {
		return m, tea.Quit
	}

	if m.showHelp {
		if msg.String() == "?" || msg.String() == "q" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	if m.editing != fieldNone {
		return m.handleEditMode(msg)
	}

	if m.committing {
		return m, nil
	}

	if m.confirmCommit {
		return m.handleConfirmMode(msg)
	}

	if m.committed != nil {
		switch {
		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keymap.Commit):
			if m.opts.Release && !m.committed.Released {
				m.errorToast = ""
				return m.commit(false)
			}
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Back):
		return m, func() tea.Msg { return BackMsg{} }
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.EditHours):
		return m.startEdit(fieldHours)
	case key.Matches(msg, m.keymap.EditLabel):
		return m.startEdit(fieldLabel)
	case key.Matches(msg, m.keymap.EditStart):
		return m.startEdit(fieldStart)
	case key.Matches(msg, m.keymap.EditEnd):
		return m.startEdit(fieldEnd)
	case key.Matches(msg, m.keymap.EditDepartment):
		return m.startEdit(fieldDepartment)
	case key.Matches(msg, m.keymap.Add):
		return m.startEdit(fieldAdd)
	case key.Matches(msg, m.keymap.Remove):
		row, ok := m.selectedRow()
		if !ok {
			return m, nil
		}
		if row.Kind != domain.KindDepartment {
			m.errorToast = "Derived rows follow the plan and cannot be removed"
			return m, nil
		}
		(&m).apply(planner.RemoveRow(row.ID))
	case key.Matches(msg, m.keymap.ToggleFolder):
		m.opts.Folder = !m.opts.Folder
	case key.Matches(msg, m.keymap.ToggleRelease):
		m.opts.Release = !m.opts.Release
	case key.Matches(msg, m.keymap.Commit):
		m.confirmCommit = true
		m.errorToast = ""
	}

	return m, nil
}

// startEdit opens the input line for the selected row.
func (m PlanEditorModel) startEdit(field editField) (tea.Model, tea.Cmd) {
	m.input.Prompt = field.prompt()
	m.input.SetValue("")

	if field != fieldAdd {
		row, ok := m.selectedRow()
		if !ok {
			return m, nil
		}
		if row.Kind != domain.KindDepartment {
			m.errorToast = "Derived rows follow the plan and cannot be edited"
			return m, nil
		}
		m.editRowID = row.ID
		m.input.SetValue(currentValue(row, field))
		m.input.CursorEnd()
	}

	m.editing = field
	m.errorToast = ""
	return m, m.input.Focus()
}

func currentValue(row domain.TaskRow, field editField) string {
	switch field {
	case fieldHours:
		return fmt.Sprint(row.Hours)
	case fieldLabel:
		return row.Label
	case fieldStart:
		return calendar.FormatERPDate(row.Start)
	case fieldEnd:
		return calendar.FormatERPDate(row.End)
	case fieldDepartment:
		return string(row.Department)
	default:
		return ""
	}
}

// handleEditMode handles key presses while the input line is open
func (m PlanEditorModel) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Submit):
		edit, err := buildEdit(m.editing, m.editRowID, m.input.Value())
		m.editing = fieldNone
		m.input.Blur()
		if err != nil {
			m.errorToast = err.Error()
			return m, nil
		}
		(&m).apply(edit)
		return m, nil
	case key.Matches(msg, m.keymap.Cancel):
		m.editing = fieldNone
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// buildEdit parses the input for field into a plan edit.
func buildEdit(field editField, rowID, value string) (planner.Edit, error) {
	value = strings.TrimSpace(value)
	switch field {
	case fieldHours:
		h, ok := hours.Numeric(value)
		if !ok {
			return planner.Edit{}, fmt.Errorf("not a number: %q", value)
		}
		return planner.UpdateRow(rowID).WithHours(h), nil
	case fieldLabel:
		return planner.UpdateRow(rowID).WithLabel(value), nil
	case fieldStart, fieldEnd:
		d, err := calendar.ParseERPDate(value)
		if err != nil {
			return planner.Edit{}, err
		}
		if field == fieldStart {
			return planner.UpdateRow(rowID).WithStart(d), nil
		}
		return planner.UpdateRow(rowID).WithEnd(d), nil
	case fieldDepartment:
		dept, err := domain.ParseDepartment(value)
		if err != nil {
			return planner.Edit{}, err
		}
		return planner.UpdateRow(rowID).WithDepartment(dept), nil
	case fieldAdd:
		dept, err := domain.ParseDepartment(value)
		if err != nil {
			return planner.Edit{}, err
		}
		return planner.AddRow(dept), nil
	default:
		return planner.Edit{}, fmt.Errorf("nothing to edit")
	}
}

// apply runs an edit through the service and shows the rebuilt plan.
func (m *PlanEditorModel) apply(edit planner.Edit) {
	plan, err := m.service.Edit(m.sess, edit)
	if err != nil {
		m.errorToast = fmt.Sprintf("Edit failed: %v", err)
		return
	}
	m.errorToast = ""
	m.setPlan(plan)
	if edit.Op == planner.EditAdd {
		m.cursor = len(plan.Rows) - 1
	}
}

// handleConfirmMode handles the commit confirmation prompt
func (m PlanEditorModel) handleConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		return m.commit(false)
	case "!":
		return m.commit(true)
	case "n", "esc", "q":
		m.confirmCommit = false
	}
	return m, nil
}

func (m PlanEditorModel) commit(force bool) (tea.Model, tea.Cmd) {
	m.confirmCommit = false
	m.committing = true
	opts := m.opts
	opts.Force = opts.Force || force

	service, sess, ctx := m.service, m.sess, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		result, err := service.Commit(ctx, sess, opts)
		return commitDoneMsg{result: result, err: err}
	})
}

// View renders the editor.
func (m PlanEditorModel) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 24
	}

	var sections []string
	sections = append(sections, m.renderHeader(width))
	sections = append(sections, m.renderMilestones())

	if m.showHelp {
		sections = append(sections, m.help.View(width))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, m.renderTable(width))
	sections = append(sections, fmt.Sprintf("Total hours: %g", m.plan.TotalHours()))

	for _, w := range m.plan.Warnings() {
		sections = append(sections, WarningStyle.Render("⚠ "+w))
	}

	switch {
	case m.editing != fieldNone:
		sections = append(sections, m.input.View())
	case m.confirmCommit:
		banner := fmt.Sprintf("Create %d task(s) in ABAS? y: yes  n: no", len(m.rows))
		if len(m.plan.Warnings()) > 0 {
			banner = fmt.Sprintf("%d row(s) end before they start. !: create anyway  n: no", len(m.plan.Warnings()))
		}
		sections = append(sections, modeStyle.Render("COMMIT")+" "+banner)
	case m.committing:
		sections = append(sections, m.spinner.View()+" Creating tasks...")
	case m.committed != nil:
		done := fmt.Sprintf("Created %d task(s)", len(m.committed.TaskIDs))
		if m.committed.FolderID != "" {
			done += " in folder " + m.committed.FolderID
		}
		if m.committed.Released {
			done += ", released to departments"
		}
		sections = append(sections, SuccessStyle.Render(done)+dimStyle.Render("  esc: dashboard  q: quit"))
	}

	if m.errorToast != "" {
		sections = append(sections, ErrorStyle.Render(m.errorToast))
	}
	sections = append(sections, HelpStyle.Render(m.help.ShortView(width)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader renders the title line with commit options on the right
func (m PlanEditorModel) renderHeader(width int) string {
	title := fmt.Sprintf("%s (lead %s)", m.plan.ProjectNumber, m.plan.Lead)

	var statusParts []string
	statusParts = append(statusParts, fmt.Sprintf("row %d/%d", m.cursor+1, len(m.rows)))
	if m.opts.Folder {
		statusParts = append(statusParts, "+folder")
	}
	if m.opts.Release {
		statusParts = append(statusParts, "+release")
	}
	statusParts = append(statusParts, "[c]create [?]help")
	status := strings.Join(statusParts, " | ")

	padding := width - len(title) - len(status) - 2
	if padding < 1 {
		padding = 1
	}
	return titleStyle.Render(title) + strings.Repeat(" ", padding) + dimStyle.Render(status)
}

func (m PlanEditorModel) renderMilestones() string {
	var parts []string
	for _, g := range domain.Gateways {
		parts = append(parts, fmt.Sprintf("%s %s", g, calendar.FormatERPDate(m.plan.Milestones[g])))
	}
	return dimStyle.Render(strings.Join(parts, "   "))
}

// renderTable renders one line per row; the label column takes the remaining width.
func (m PlanEditorModel) renderTable(width int) string {
	labelWidth := width - deptColumnWidth - hoursColumnWidth - 2*dateColumnWidth - typeColumnWidth - 4
	if labelWidth < minLabelWidth {
		labelWidth = minLabelWidth
	}

	cell := func(s string, w int) string {
		return lipgloss.NewStyle().Width(w).Render(truncate.StringWithTail(s, uint(w-1), "…"))
	}

	header := "  " + cell("Department", deptColumnWidth) + cell("Label", labelWidth) + cell("Hours", hoursColumnWidth) +
		cell("Start", dateColumnWidth) + cell("End", dateColumnWidth) + cell("Type", typeColumnWidth)
	lines := []string{dimStyle.Render(header)}

	for i, r := range m.rows {
		line := cell(string(r.Department), deptColumnWidth) + cell(r.Label, labelWidth) + cell(fmt.Sprint(r.Hours), hoursColumnWidth) +
			cell(calendar.FormatERPDate(r.Start), dateColumnWidth) + cell(calendar.FormatERPDate(r.End), dateColumnWidth) +
			cell(r.ActivityType, typeColumnWidth)

		style := NormalItemStyle
		switch {
		case r.Inverted():
			style = WarningStyle
		case r.Kind != domain.KindDepartment:
			style = DerivedItemStyle
		}
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
			style = SelectedItemStyle
			if r.Inverted() {
				style = style.Foreground(WarningStyle.GetForeground())
			}
		}
		lines = append(lines, style.Render(prefix+line))
	}
	return strings.Join(lines, "\n")
}
