package planner

import (
	"testing"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructions_Assignees(t *testing.T) {
	cfg := settings.Default()
	cfg.IPCPerson = "KLM"
	a := createTestAssembler(cfg)

	plan, err := a.BuildPlan(PlanInput{
		ProjectNumber: "P24-0815",
		Lead:          "MRG",
		Milestones:    createTestMilestones(),
		Hours:         domain.DepartmentHours{domain.DeptProjectManagement: 20, domain.DeptTD: 8},
	})
	require.NoError(t, err)
	plan, err = a.ApplyEdits(plan, []Edit{
		AddRow(domain.DeptIPC).WithHours(4).WithDates(calendar.Date(2025, 4, 1), calendar.Date(2025, 4, 4)),
	})
	require.NoError(t, err)

	instructions, err := a.Instructions(plan)
	require.NoError(t, err)
	require.Len(t, instructions, len(plan.All()))

	byLabel := make(map[string]domain.TaskInstruction)
	for _, inst := range instructions {
		assert.Equal(t, "P24-0815", inst.ProjectNumber)
		byLabel[inst.Label] = inst
	}

	pm := byLabel["Project Planning"]
	assert.Equal(t, domain.AssignPerson, pm.AssigneeKind)
	assert.Equal(t, "MRG", pm.Assignee)
	assert.Equal(t, 20.0, pm.Hours)

	td := byLabel["Manual"]
	assert.Equal(t, domain.AssignDepartment, td.AssigneeKind)
	assert.Equal(t, "TD", td.Assignee)
	assert.Equal(t, "TD", td.ActivityType)

	ipc := byLabel["IPC"]
	assert.Equal(t, domain.AssignPerson, ipc.AssigneeKind)
	assert.Equal(t, "KLM", ipc.Assignee)

	dispatch := byLabel[LabelDispatch]
	assert.True(t, dispatch.Milestone)
	assert.Equal(t, domain.AssignPerson, dispatch.AssigneeKind)
	assert.Equal(t, "MRG", dispatch.Assignee)

	support := byLabel[LabelSupport]
	assert.Equal(t, "INTRAVIS", support.Assignee)
	assert.False(t, support.Milestone)
}

func TestInstructions_Order(t *testing.T) {
	a := createTestAssembler(settings.Default())
	plan := createTestPlan(t, a)

	instructions, err := a.Instructions(plan)
	require.NoError(t, err)

	var ids []string
	for _, inst := range instructions {
		ids = append(ids, inst.RowID)
	}
	var want []string
	for _, r := range plan.All() {
		want = append(want, r.ID)
	}
	assert.Equal(t, want, ids)
	assert.Equal(t, "derived:support", ids[len(ids)-1])
}

func TestInstructions_NeedsLead(t *testing.T) {
	a := createTestAssembler(settings.Default())
	plan, err := a.BuildPlan(PlanInput{
		ProjectNumber: "P24-0815",
		Milestones:    createTestMilestones(),
		Hours:         domain.DepartmentHours{domain.DeptMCAD: 1},
	})
	require.NoError(t, err)

	_, err = a.Instructions(plan)
	assert.ErrorIs(t, err, ErrNoLead)
}
