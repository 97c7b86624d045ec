package planner

import (
	"fmt"

	"github.com/robby/pjm/internal/domain"
)

// Instructions translates a plan into ERP task-creation calls in creation
// order: department rows first, then the derived tail.
//
// PROJECTMANAGEMENT rows and the dispatch milestone are person tasks of the
// lead; IPC rows are person tasks of the configured IPC person; every other
// row is a department task.
func (a *Assembler) Instructions(plan domain.TaskPlan) ([]domain.TaskInstruction, error) {
	rows := plan.All()
	out := make([]domain.TaskInstruction, 0, len(rows))

	for _, row := range rows {
		inst := domain.TaskInstruction{
			RowID:         row.ID,
			ProjectNumber: plan.ProjectNumber,
			AssigneeKind:  domain.AssignDepartment,
			Assignee:      string(row.Department),
			ActivityType:  row.ActivityType,
			Label:         row.Label,
			Hours:         row.Hours,
			Start:         row.Start,
			End:           row.End,
		}

		switch {
		case row.Kind == domain.KindDispatch:
			inst.AssigneeKind = domain.AssignPerson
			inst.Assignee = plan.Lead
			inst.Milestone = true
		case row.Department == domain.DeptProjectManagement:
			inst.AssigneeKind = domain.AssignPerson
			inst.Assignee = plan.Lead
		case row.Department == domain.DeptIPC:
			inst.AssigneeKind = domain.AssignPerson
			inst.Assignee = a.settings.IPCPerson
		}

		if inst.AssigneeKind == domain.AssignPerson && inst.Assignee == "" {
			return nil, fmt.Errorf("%w: %s task %q", ErrNoLead, row.Department, row.Label)
		}
		if inst.ActivityType == "" && !inst.Milestone {
			activity, err := a.mapper.Map(string(row.Department))
			if err != nil {
				return nil, a.departmentError(row.Department, err)
			}
			inst.ActivityType = activity
		}

		out = append(out, inst)
	}
	return out, nil
}
