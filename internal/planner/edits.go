package planner

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
)

// EditOp is the kind of change an Edit makes.
type EditOp int

const (
	EditUpdate EditOp = iota
	EditAdd
	EditRemove
)

func (op EditOp) String() string {
	switch op {
	case EditUpdate:
		return "update"
	case EditAdd:
		return "add"
	case EditRemove:
		return "remove"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Edit is one user change to the department rows. Nil fields are left unchanged
// on update; on add they fall back to the department's defaults.
type Edit struct {
	Op         EditOp
	RowID      string // target row for update and remove
	Department *domain.Department
	Hours      *float64
	Label      *string
	Start      *time.Time
	End        *time.Time
}

// UpdateRow returns an update edit for the given row.
func UpdateRow(id string) Edit { return Edit{Op: EditUpdate, RowID: id} }

// RemoveRow returns an edit that drops the given row.
func RemoveRow(id string) Edit { return Edit{Op: EditRemove, RowID: id} }

// AddRow returns an edit that appends a row for dept.
func AddRow(dept domain.Department) Edit { return Edit{Op: EditAdd, Department: &dept} }

// WithHours sets the hour budget.
func (e Edit) WithHours(h float64) Edit { e.Hours = &h; return e }

// WithLabel sets the task label.
func (e Edit) WithLabel(l string) Edit { e.Label = &l; return e }

// WithDepartment sets the department.
func (e Edit) WithDepartment(d domain.Department) Edit { e.Department = &d; return e }

// WithDates sets start and end.
func (e Edit) WithDates(start, end time.Time) Edit { e.Start, e.End = &start, &end; return e }

// WithStart sets the start date.
func (e Edit) WithStart(start time.Time) Edit { e.Start = &start; return e }

// WithEnd sets the end date.
func (e Edit) WithEnd(end time.Time) Edit { e.End = &end; return e }

// ApplyEdits applies edits in order and returns a new plan; the input plan is
// not modified. Edited dates are rolled (start forward, end backward) and the
// derived tail is rebuilt from the final rows. Row order is kept; added rows
// are appended.
func (a *Assembler) ApplyEdits(plan domain.TaskPlan, edits []Edit) (domain.TaskPlan, error) {
	rows := slices.Clone(plan.Rows)

	for i, e := range edits {
		var err error
		rows, err = a.applyEdit(rows, plan.Milestones, e)
		if err != nil {
			return domain.TaskPlan{}, fmt.Errorf("edit %d (%s): %w", i+1, e.Op, err)
		}
	}

	edited := plan
	edited.Rows = rows
	derived, err := a.derive(edited)
	if err != nil {
		return domain.TaskPlan{}, err
	}
	edited.Derived = derived
	return edited, nil
}

func (a *Assembler) applyEdit(rows []domain.TaskRow, milestones domain.Milestones, e Edit) ([]domain.TaskRow, error) {
	switch e.Op {
	case EditRemove:
		idx := indexOf(rows, e.RowID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRowNotFound, e.RowID)
		}
		return slices.Delete(rows, idx, idx+1), nil

	case EditUpdate:
		idx := indexOf(rows, e.RowID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRowNotFound, e.RowID)
		}
		row, err := a.update(rows[idx], e)
		if err != nil {
			return nil, err
		}
		rows[idx] = row
		return rows, nil

	case EditAdd:
		row, err := a.add(milestones, e)
		if err != nil {
			return nil, err
		}
		return append(rows, row), nil

	default:
		return nil, fmt.Errorf("%w: unknown operation %s", ErrInvalidEdit, e.Op)
	}
}

// update builds a new row from old with the edit's fields applied.
func (a *Assembler) update(old domain.TaskRow, e Edit) (domain.TaskRow, error) {
	row := old

	if e.Department != nil && *e.Department != row.Department {
		dept, err := domain.ParseDepartment(string(*e.Department))
		if err != nil {
			return domain.TaskRow{}, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
		}
		activity, err := a.mapper.Map(string(dept))
		if err != nil {
			return domain.TaskRow{}, err
		}
		row.Department = dept
		row.ActivityType = activity
	}
	if e.Hours != nil {
		if *e.Hours < 0 || math.IsNaN(*e.Hours) || math.IsInf(*e.Hours, 0) {
			return domain.TaskRow{}, fmt.Errorf("%w: hours %v", ErrInvalidEdit, *e.Hours)
		}
		row.Hours = *e.Hours
	}
	if e.Label != nil {
		row.Label = *e.Label
	}
	if e.Start != nil {
		row.Start = calendar.RollForward(calendar.Day(*e.Start))
	}
	if e.End != nil {
		row.End = calendar.RollBackward(calendar.Day(*e.End))
	}
	return row, nil
}

// add builds a new department row. Missing dates come from the department's
// rule; missing hours are zero; a missing label is the configured task name.
func (a *Assembler) add(milestones domain.Milestones, e Edit) (domain.TaskRow, error) {
	if e.Department == nil {
		return domain.TaskRow{}, fmt.Errorf("%w: added row needs a department", ErrInvalidEdit)
	}
	dept, err := domain.ParseDepartment(string(*e.Department))
	if err != nil {
		return domain.TaskRow{}, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
	}
	activity, err := a.mapper.Map(string(dept))
	if err != nil {
		return domain.TaskRow{}, a.departmentError(dept, err)
	}

	row := domain.TaskRow{
		ID:           a.newID(),
		Kind:         domain.KindDepartment,
		Department:   dept,
		Label:        a.settings.TaskName(dept),
		ActivityType: activity,
	}

	if e.Start == nil || e.End == nil {
		start, end, err := a.engine.ComputeInterval(dept, milestones)
		if err != nil {
			return domain.TaskRow{}, a.departmentError(dept, err)
		}
		row.Start, row.End = start, end
	}

	// The remaining fields follow the update rules, including date rolling.
	e.Department = nil
	return a.update(row, e)
}

func indexOf(rows []domain.TaskRow, id string) int {
	return slices.IndexFunc(rows, func(r domain.TaskRow) bool { return r.ID == id })
}
