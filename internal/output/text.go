package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const defaultLabelWidth = 40

type textStyles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
}

func (f *TextFormatter) styles() textStyles {
	r := f.opts.Renderer
	if r == nil {
		r = lipgloss.NewRenderer(f.opts.Writer)
	}
	if f.opts.NoColor {
		plain := r.NewStyle()
		return textStyles{title: plain, header: plain, cell: plain.Padding(0, 1), warning: plain.Padding(0, 1), err: plain, muted: plain}
	}
	return textStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")).Padding(0, 1),
		err:     r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

func renderPlan(v PlanView, st textStyles, width int) string {
	if width <= 0 {
		width = defaultLabelWidth
	}

	var b strings.Builder
	b.WriteString(st.title.Render(fmt.Sprintf("Project %s (lead %s)", v.Project, v.Lead)))
	b.WriteString("\n")

	var gates []string
	for _, g := range []string{"G6", "G7", "G8"} {
		gates = append(gates, fmt.Sprintf("%s %s", g, orDash(v.Milestones[g])))
	}
	b.WriteString(st.muted.Render(strings.Join(gates, "   ")))
	b.WriteString("\n")

	inverted := make(map[int]bool)
	rows := make([][]string, 0, len(v.Rows))
	for i, r := range v.Rows {
		inverted[i] = r.Inverted
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			r.Department,
			truncate.StringWithTail(r.Label, uint(width), "…"),
			formatNumber(r.Hours),
			orDash(r.Start),
			orDash(r.End),
			orDash(r.ActivityType),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Department", "Label", "Hours", "Start", "End", "Type").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return st.header
			case inverted[row]:
				return st.warning
			default:
				return st.cell
			}
		})
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Total hours: %s", formatNumber(v.TotalHours)))

	for _, w := range v.Warnings {
		b.WriteString("\n")
		b.WriteString(st.warning.UnsetPadding().Render("warning: " + w))
	}
	return b.String()
}

func renderDashboard(v DashboardView, st textStyles, width int) string {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(st.title.Render(fmt.Sprintf("Dashboard %s (%s)", v.Lead, v.Today)))
	for _, s := range v.Sections {
		b.WriteString("\n\n")
		b.WriteString(st.title.Render(s.Title))
		b.WriteString("\n")
		switch {
		case s.Error != "":
			b.WriteString(st.err.Render(wordwrap.String("unavailable: "+s.Error, width)))
		case len(s.Rows) == 0:
			b.WriteString(st.muted.Render("nothing to show"))
		default:
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers(s.Columns...).
				Rows(s.Rows...).
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return st.header
					}
					return st.cell
				})
			b.WriteString(t.String())
		}
	}
	return b.String()
}

func renderCommit(v CommitView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Created %d task(s) for %s", len(v.TaskIDs), v.Project)
	if v.FolderID != "" {
		fmt.Fprintf(&b, " in folder %s", v.FolderID)
	}
	if v.Released {
		b.WriteString(", released to departments")
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
