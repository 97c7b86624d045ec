// Package domain defines the normalized domain types for project planning on top of ABAS.
// These types represent the core concepts independent of the ERP's JSON structure.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Department is one of the fixed execution teams that can receive planned hours and tasks.
type Department string

// Department constants. The string values are the names used in the ERP and in settings.
const (
	DeptMCAD               Department = "MCAD"
	DeptECAD               Department = "ECAD"
	DeptAutomation         Department = "AUTOMATION"
	DeptImaging            Department = "BILDGEBUNG"
	DeptProjectManagement  Department = "PROJECTMANAGEMENT"
	DeptProductDevelopment Department = "PRODUCT DEVELOPMENT"
	DeptSoftware           Department = "SOFTWARE"
	DeptTD                 Department = "TD"
	DeptIPC                Department = "IPC"
	DeptTechnikum          Department = "TECHNIKUM"
	DeptIntravis           Department = "INTRAVIS" // support team, only used for the derived support task
)

// Departments lists every known department in display order.
var Departments = []Department{
	DeptMCAD,
	DeptECAD,
	DeptAutomation,
	DeptImaging,
	DeptProjectManagement,
	DeptProductDevelopment,
	DeptSoftware,
	DeptTD,
	DeptIPC,
	DeptTechnikum,
	DeptIntravis,
}

// ParseDepartment resolves a department name case-insensitively.
func ParseDepartment(s string) (Department, error) {
	name := strings.TrimSpace(s)
	for _, d := range Departments {
		if strings.EqualFold(string(d), name) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown department %q", s)
}

// Valid reports whether d is one of the known departments.
func (d Department) Valid() bool {
	_, err := ParseDepartment(string(d))
	return err == nil
}

// DepartmentHours maps a department to its aggregated hour total.
// A department absent from the map has zero hours.
type DepartmentHours map[Department]float64

// Milestones maps a gateway (G6, G7, G8) to its completion date.
type Milestones map[Anchor]time.Time

// Missing returns the gateways that have no date, in G6, G7, G8 order.
func (m Milestones) Missing() []Anchor {
	var missing []Anchor
	for _, g := range Gateways {
		if _, ok := m[g]; !ok {
			missing = append(missing, g)
		}
	}
	return missing
}

// ProjectRef holds the ERP identifiers resolved from a project number.
type ProjectRef struct {
	ProjectNumber     string // Project number entered by the user (e.g., "P24-0815")
	GatewayID         string // ERP record ID of the project's gateway object
	GatewayNumber     string // Gateway number shown in the ERP
	CalculationNumber string // Number of the pre-sales calculation holding the hours
}

// TaskKind classifies a row of the task plan.
type TaskKind int

const (
	KindDepartment     TaskKind = iota // planned department work
	KindImagingSupport                 // second imaging task following BILDGEBUNG
	KindRelease                        // MCAD/ECAD release task at G7
	KindDispatch                       // dispatch milestone at G8
	KindSupport                        // support task at G8
)

// String returns a short label for the kind.
func (k TaskKind) String() string {
	switch k {
	case KindDepartment:
		return "department"
	case KindImagingSupport:
		return "imaging-support"
	case KindRelease:
		return "release"
	case KindDispatch:
		return "dispatch"
	case KindSupport:
		return "support"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TaskRow is one row of the project plan. Rows are values: edits build new rows.
type TaskRow struct {
	ID           string     // Stable row identity used to address edits
	Kind         TaskKind   // Department row or one of the derived kinds
	Department   Department // Team that executes the task
	Hours        float64    // Hour budget (planned, target and forecast)
	Label        string     // Task label text shown in the ERP
	Start        time.Time  // First business day of the task
	End          time.Time  // Last business day of the task
	ActivityType string     // ERP activity type (Leistungsart) code
}

// Inverted reports whether the row ends before it starts.
func (r TaskRow) Inverted() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start)
}

// TaskPlan is the ordered plan for one project: department rows followed by the derived tail.
type TaskPlan struct {
	ProjectNumber string
	Lead          string // Acting project lead short code
	Milestones    Milestones
	Rows          []TaskRow // department rows, user-ordered
	Derived       []TaskRow // fixed tail, rebuilt after every edit
}

// All returns department rows followed by derived rows.
func (p TaskPlan) All() []TaskRow {
	all := make([]TaskRow, 0, len(p.Rows)+len(p.Derived))
	all = append(all, p.Rows...)
	all = append(all, p.Derived...)
	return all
}

// Row returns the department row with the given ID.
func (p TaskPlan) Row(id string) (TaskRow, bool) {
	for _, r := range p.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return TaskRow{}, false
}

// HasDepartment reports whether any department row belongs to d.
func (p TaskPlan) HasDepartment(d Department) bool {
	for _, r := range p.Rows {
		if r.Department == d {
			return true
		}
	}
	return false
}

// Warnings lists inverted rows as human-readable messages.
func (p TaskPlan) Warnings() []string {
	var warnings []string
	for _, r := range p.All() {
		if r.Inverted() {
			warnings = append(warnings, fmt.Sprintf("%s %q ends %s before it starts %s",
				r.Department, r.Label, r.End.Format("2006-01-02"), r.Start.Format("2006-01-02")))
		}
	}
	return warnings
}

// TotalHours sums the hour budget of all rows.
func (p TaskPlan) TotalHours() float64 {
	total := 0.0
	for _, r := range p.All() {
		total += r.Hours
	}
	return total
}

// AssigneeKind says whether a task is billed to a person or a department.
type AssigneeKind int

const (
	AssignDepartment AssigneeKind = iota
	AssignPerson
)

// TaskInstruction is one ERP task-creation call produced from a plan row.
type TaskInstruction struct {
	RowID         string
	ProjectNumber string
	AssigneeKind  AssigneeKind
	Assignee      string // person short code or department team
	ActivityType  string
	Label         string
	Hours         float64
	Start         time.Time
	End           time.Time
	Milestone     bool // created as ERP milestone (ypvtyp=Meilenstein)
}

// SortedDepartments returns the keys of h in name order.
func (h DepartmentHours) SortedDepartments() []Department {
	deps := make([]Department, 0, len(h))
	for d := range h {
		deps = append(deps, d)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
	return deps
}
