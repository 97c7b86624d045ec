// Package planner assembles the task plan of a project from its milestones,
// the calculated department hours and the date rules, applies user edits and
// translates the final plan into ERP task-creation instructions.
package planner

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/leistungsart"
	"github.com/robby/pjm/internal/rules"
	"github.com/robby/pjm/internal/settings"
)

var (
	// ErrRowNotFound indicates an edit addressed a row that is not in the plan.
	ErrRowNotFound = errors.New("row not found")
	// ErrInvalidEdit indicates an edit with values that cannot be applied.
	ErrInvalidEdit = errors.New("invalid edit")
	// ErrNoLead indicates person tasks need a project lead but none is set.
	ErrNoLead = errors.New("no project lead")
)

// Labels of the derived tasks.
const (
	LabelImagingSupport = "Imaging Support"
	LabelRelease        = "Freigabe"
	LabelDispatch       = "Dispatch"
	LabelSupport        = "Support"
)

// PlanInput is the data fetched from the ERP for one project.
type PlanInput struct {
	ProjectNumber string
	Lead          string
	Milestones    domain.Milestones
	Hours         domain.DepartmentHours
}

// Assembler builds and edits task plans. It holds no per-plan state.
type Assembler struct {
	settings settings.Settings
	engine   *rules.Engine
	mapper   *leistungsart.Mapper
	newID    func() string
}

// Option configures an Assembler.
type Option func(*assemblerOptions)

type assemblerOptions struct {
	now    func() time.Time
	newID  func() string
	mapper *leistungsart.Mapper
}

// WithClock sets the clock that resolves TODAY anchors.
func WithClock(now func() time.Time) Option {
	return func(o *assemblerOptions) { o.now = now }
}

// WithIDGenerator sets the generator for row IDs.
func WithIDGenerator(gen func() string) Option {
	return func(o *assemblerOptions) { o.newID = gen }
}

// WithMapper replaces the activity type table.
func WithMapper(m *leistungsart.Mapper) Option {
	return func(o *assemblerOptions) { o.mapper = m }
}

// NewAssembler creates an assembler for the given settings.
func NewAssembler(cfg settings.Settings, opts ...Option) *Assembler {
	o := assemblerOptions{
		now:    time.Now,
		newID:  uuid.NewString,
		mapper: leistungsart.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.Clone()
	return &Assembler{
		settings: cfg,
		engine:   rules.NewEngine(cfg.DateRules, o.now),
		mapper:   o.mapper,
		newID:    o.newID,
	}
}

// Settings returns the assembler's configuration.
func (a *Assembler) Settings() settings.Settings { return a.settings }

// BuildPlan drafts the plan: one row per department with hours > 0, dated by
// its rule and sorted by start, followed by the derived tail. Every department
// that cannot be derived is reported; no row is guessed.
func (a *Assembler) BuildPlan(in PlanInput) (domain.TaskPlan, error) {
	plan := domain.TaskPlan{
		ProjectNumber: in.ProjectNumber,
		Lead:          in.Lead,
		Milestones:    in.Milestones,
	}

	var errs []error
	for _, dept := range in.Hours.SortedDepartments() {
		hours := in.Hours[dept]
		if !(hours > 0) || math.IsInf(hours, 0) {
			continue
		}
		row, err := a.departmentRow(dept, hours, in.Milestones)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		plan.Rows = append(plan.Rows, row)
	}
	if len(errs) > 0 {
		return domain.TaskPlan{}, errors.Join(errs...)
	}

	sort.SliceStable(plan.Rows, func(i, j int) bool {
		return plan.Rows[i].Start.Before(plan.Rows[j].Start)
	})

	derived, err := a.derive(plan)
	if err != nil {
		return domain.TaskPlan{}, err
	}
	plan.Derived = derived
	return plan, nil
}

func (a *Assembler) departmentRow(dept domain.Department, hours float64, milestones domain.Milestones) (domain.TaskRow, error) {
	start, end, err := a.engine.ComputeInterval(dept, milestones)
	if err != nil {
		return domain.TaskRow{}, a.departmentError(dept, err)
	}
	activity, err := a.mapper.Map(string(dept))
	if err != nil {
		return domain.TaskRow{}, a.departmentError(dept, err)
	}

	return domain.TaskRow{
		ID:           a.newID(),
		Kind:         domain.KindDepartment,
		Department:   dept,
		Hours:        hours,
		Label:        a.settings.TaskName(dept),
		Start:        start,
		End:          end,
		ActivityType: activity,
	}, nil
}

func (a *Assembler) departmentError(dept domain.Department, err error) error {
	var rule string
	if r, ok := a.engine.Rule(dept); ok {
		rule = r.String()
	}
	return &domain.DepartmentError{Department: dept, Rule: rule, Err: err}
}

// derive builds the fixed tail: imaging support, MCAD/ECAD release, dispatch
// milestone and support, in that order.
func (a *Assembler) derive(plan domain.TaskPlan) ([]domain.TaskRow, error) {
	var tail []domain.TaskRow

	if a.settings.DuplicateImagingTask {
		if imaging, ok := firstRow(plan.Rows, domain.DeptImaging); ok {
			start := calendar.AddBusinessDays(imaging.End, 1)
			row, err := a.derivedRow("derived:imaging-support", domain.KindImagingSupport, domain.DeptImaging, LabelImagingSupport,
				start, calendar.RollBackward(start.AddDate(0, 0, 14)))
			if err != nil {
				return nil, err
			}
			tail = append(tail, row)
		}
	}

	if a.settings.ReleaseTasks {
		for _, dept := range []domain.Department{domain.DeptMCAD, domain.DeptECAD} {
			if !plan.HasDepartment(dept) {
				continue
			}
			g7, err := a.engine.ResolveAnchor(domain.AnchorG7, plan.Milestones)
			if err != nil {
				return nil, fmt.Errorf("deriving %s release: %w", dept, err)
			}
			row, err := a.derivedRow("derived:release:"+string(dept), domain.KindRelease, dept,
				fmt.Sprintf("%s %s", dept, LabelRelease), g7, g7)
			if err != nil {
				return nil, err
			}
			tail = append(tail, row)
		}
	}

	g8, err := a.engine.ResolveAnchor(domain.AnchorG8, plan.Milestones)
	if err != nil {
		return nil, fmt.Errorf("deriving dispatch milestone: %w", err)
	}
	tail = append(tail, domain.TaskRow{
		ID:         "derived:dispatch",
		Kind:       domain.KindDispatch,
		Department: domain.DeptProjectManagement,
		Label:      LabelDispatch,
		Start:      g8,
		End:        g8,
	})

	support, err := a.derivedRow("derived:support", domain.KindSupport, domain.DeptIntravis, LabelSupport, g8, g8)
	if err != nil {
		return nil, err
	}
	return append(tail, support), nil
}

func (a *Assembler) derivedRow(id string, kind domain.TaskKind, dept domain.Department, label string, start, end time.Time) (domain.TaskRow, error) {
	activity, err := a.mapper.Map(string(dept))
	if err != nil {
		return domain.TaskRow{}, fmt.Errorf("deriving %s task: %w", kind, err)
	}
	return domain.TaskRow{
		ID:           id,
		Kind:         kind,
		Department:   dept,
		Label:        label,
		Start:        start,
		End:          end,
		ActivityType: activity,
	}, nil
}

func firstRow(rows []domain.TaskRow, dept domain.Department) (domain.TaskRow, bool) {
	for _, r := range rows {
		if r.Department == dept {
			return r, true
		}
	}
	return domain.TaskRow{}, false
}
