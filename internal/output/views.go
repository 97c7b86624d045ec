package output

import (
	"strconv"
	"time"

	"github.com/robby/pjm/internal/dashboard"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/planner"
)

const isoDate = "2006-01-02"

// PlanRow is one plan row as written to the output.
type PlanRow struct {
	ID           string  `json:"id" yaml:"id"`
	Kind         string  `json:"kind" yaml:"kind"`
	Department   string  `json:"department" yaml:"department"`
	Label        string  `json:"label" yaml:"label"`
	Hours        float64 `json:"hours" yaml:"hours"`
	Start        string  `json:"start" yaml:"start"`
	End          string  `json:"end" yaml:"end"`
	ActivityType string  `json:"activity_type,omitempty" yaml:"activity_type,omitempty"`
	Inverted     bool    `json:"inverted,omitempty" yaml:"inverted,omitempty"`
}

// PlanView is a task plan prepared for output.
type PlanView struct {
	Project    string            `json:"project" yaml:"project"`
	Lead       string            `json:"lead" yaml:"lead"`
	Milestones map[string]string `json:"milestones" yaml:"milestones"`
	Rows       []PlanRow         `json:"rows" yaml:"rows"`
	TotalHours float64           `json:"total_hours" yaml:"total_hours"`
	Warnings   []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewPlanView converts a plan, department rows first.
func NewPlanView(plan domain.TaskPlan) PlanView {
	v := PlanView{
		Project:    plan.ProjectNumber,
		Lead:       plan.Lead,
		Milestones: make(map[string]string, len(plan.Milestones)),
		TotalHours: plan.TotalHours(),
		Warnings:   plan.Warnings(),
	}
	for _, g := range domain.Gateways {
		if d, ok := plan.Milestones[g]; ok {
			v.Milestones[g.String()] = formatDate(d)
		}
	}
	for _, r := range plan.All() {
		v.Rows = append(v.Rows, PlanRow{
			ID:           r.ID,
			Kind:         r.Kind.String(),
			Department:   string(r.Department),
			Label:        r.Label,
			Hours:        r.Hours,
			Start:        formatDate(r.Start),
			End:          formatDate(r.End),
			ActivityType: r.ActivityType,
			Inverted:     r.Inverted(),
		})
	}
	return v
}

// CommitView summarizes what was created in the ERP.
type CommitView struct {
	Project  string   `json:"project" yaml:"project"`
	FolderID string   `json:"folder_id,omitempty" yaml:"folder_id,omitempty"`
	TaskIDs  []string `json:"task_ids" yaml:"task_ids"`
	Released bool     `json:"released" yaml:"released"`
}

// NewCommitView converts a commit result.
func NewCommitView(project string, r planner.CommitResult) CommitView {
	return CommitView{Project: project, FolderID: r.FolderID, TaskIDs: r.TaskIDs, Released: r.Released}
}

// SectionView is one dashboard block as rows of text cells.
type SectionView struct {
	Title   string     `json:"title" yaml:"title"`
	Error   string     `json:"error,omitempty" yaml:"error,omitempty"`
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// DashboardView is a loaded dashboard prepared for output.
type DashboardView struct {
	Lead     string        `json:"lead" yaml:"lead"`
	Today    string        `json:"today" yaml:"today"`
	Sections []SectionView `json:"sections" yaml:"sections"`
}

// NewDashboardView converts a dashboard into its sections in display order.
func NewDashboardView(d dashboard.Dashboard) DashboardView {
	gatewayColumns := []string{"Project", "Name", "Phase", "Gateway", "Customer", "Location"}
	gatewayCells := func(r domain.GatewayRow) []string {
		return []string{r.ProjectNumber, r.ProjectName, r.Phase, r.Gateway, r.Customer, r.Location}
	}

	return DashboardView{
		Lead:  d.Lead,
		Today: formatDate(d.Today),
		Sections: []SectionView{
			section(d.SoldPhase, gatewayColumns, gatewayCells),
			section(d.Red(), gatewayColumns, gatewayCells),
			section(d.Blue(), gatewayColumns, gatewayCells),
			section(d.Dispatches, []string{"Dispatch", "Project", "Service product", "System type", "Recipient"},
				func(r domain.DispatchRow) []string {
					return []string{r.Dispatch, r.ProjectNumber, r.ServiceProduct, r.SystemType, r.Recipient}
				}),
			section(d.OpenTasks, []string{"Task", "Title", "From", "Project", "Start", "End"},
				func(r domain.OpenTask) []string {
					return []string{r.Number, r.Title, r.From, r.ProjectNumber, r.Start, r.End}
				}),
			section(d.Overbooked, []string{"Project", "Name", "Booked %", "Budget", "Booked"},
				func(r domain.OverbookedProject) []string {
					return []string{r.ProjectNumber, r.ProjectName, formatNumber(r.Percent), formatNumber(r.Budget), formatNumber(r.Booked)}
				}),
			section(d.BookedHours, []string{"Date", "Hours", "Project", "Description"},
				func(r domain.BookedHours) []string {
					return []string{r.Date, formatNumber(r.Hours), r.ProjectNumber, r.Description}
				}),
		},
	}
}

func section[T any](s dashboard.Section[T], columns []string, cells func(T) []string) SectionView {
	v := SectionView{Title: s.Title, Columns: columns, Rows: [][]string{}}
	if s.Err != nil {
		v.Error = s.Err.Error()
		return v
	}
	for _, row := range s.Rows {
		v.Rows = append(v.Rows, cells(row))
	}
	return v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(isoDate)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
