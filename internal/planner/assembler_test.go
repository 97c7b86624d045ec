package planner

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures
func createTestMilestones() domain.Milestones {
	return domain.Milestones{
		domain.AnchorG6: calendar.Date(2025, time.January, 1),
		domain.AnchorG7: calendar.Date(2025, time.March, 1),
		domain.AnchorG8: calendar.Date(2025, time.May, 1),
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("row-%d", n)
	}
}

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
}

func createTestAssembler(cfg settings.Settings) *Assembler {
	return NewAssembler(cfg,
		WithClock(fixedClock(2025, time.February, 10)),
		WithIDGenerator(sequentialIDs()),
	)
}

func departments(rows []domain.TaskRow) []domain.Department {
	out := make([]domain.Department, len(rows))
	for i, r := range rows {
		out[i] = r.Department
	}
	return out
}

func kinds(rows []domain.TaskRow) []domain.TaskKind {
	out := make([]domain.TaskKind, len(rows))
	for i, r := range rows {
		out[i] = r.Kind
	}
	return out
}

func TestBuildPlan_FiltersAndSorts(t *testing.T) {
	a := createTestAssembler(settings.Default())

	plan, err := a.BuildPlan(PlanInput{
		ProjectNumber: "P24-0815",
		Lead:          "MRG",
		Milestones:    createTestMilestones(),
		Hours: domain.DepartmentHours{
			domain.DeptMCAD:    40,
			domain.DeptECAD:    0,
			domain.DeptImaging: 10,
			domain.DeptTD:      math.NaN(),
			domain.DeptIPC:     math.Inf(1),
		},
	})
	require.NoError(t, err)

	require.Len(t, plan.Rows, 2)
	assert.Equal(t, []domain.Department{domain.DeptImaging, domain.DeptMCAD}, departments(plan.Rows))
	assert.True(t, plan.Rows[0].Start.Before(plan.Rows[1].Start))

	imaging := plan.Rows[0]
	assert.Equal(t, calendar.Date(2025, time.January, 1), imaging.Start)
	assert.Equal(t, calendar.Date(2025, time.January, 8), imaging.End)
	assert.Equal(t, "Imaging Design", imaging.Label)
	assert.Equal(t, "BILDGEBUNG", imaging.ActivityType)
	assert.Equal(t, 10.0, imaging.Hours)

	mcad := plan.Rows[1]
	assert.Equal(t, calendar.Date(2025, time.February, 17), mcad.Start)
	assert.Equal(t, calendar.Date(2025, time.February, 21), mcad.End)

	assert.Equal(t, []domain.TaskKind{
		domain.KindImagingSupport,
		domain.KindRelease,
		domain.KindDispatch,
		domain.KindSupport,
	}, kinds(plan.Derived))
	assert.Empty(t, plan.Warnings())
}

func TestBuildPlan_DerivedTail(t *testing.T) {
	a := createTestAssembler(settings.Default())
	plan, err := a.BuildPlan(PlanInput{
		ProjectNumber: "P24-0815",
		Lead:          "MRG",
		Milestones:    createTestMilestones(),
		Hours:         domain.DepartmentHours{domain.DeptMCAD: 40, domain.DeptECAD: 12, domain.DeptImaging: 10},
	})
	require.NoError(t, err)
	require.Len(t, plan.Derived, 5)

	t.Run("imaging support follows imaging", func(t *testing.T) {
		support := plan.Derived[0]
		assert.Equal(t, domain.DeptImaging, support.Department)
		assert.Equal(t, calendar.Date(2025, time.January, 9), support.Start)
		assert.Equal(t, calendar.Date(2025, time.January, 23), support.End)
		assert.Zero(t, support.Hours)
	})

	t.Run("release tasks at G7 exactly", func(t *testing.T) {
		for i, dept := range []domain.Department{domain.DeptMCAD, domain.DeptECAD} {
			release := plan.Derived[1+i]
			assert.Equal(t, domain.KindRelease, release.Kind)
			assert.Equal(t, dept, release.Department)
			assert.Equal(t, calendar.Date(2025, time.March, 1), release.Start)
			assert.Equal(t, release.Start, release.End)
			assert.Zero(t, release.Hours)
		}
	})

	t.Run("dispatch and support at G8", func(t *testing.T) {
		dispatch, support := plan.Derived[3], plan.Derived[4]
		assert.Equal(t, domain.KindDispatch, dispatch.Kind)
		assert.Equal(t, calendar.Date(2025, time.May, 1), dispatch.Start)
		assert.Equal(t, domain.DeptIntravis, support.Department)
		assert.Equal(t, "INTRAVIS", support.ActivityType)
		assert.Equal(t, calendar.Date(2025, time.May, 1), support.End)
		assert.Zero(t, support.Hours)
	})
}

func TestBuildPlan_TogglesOff(t *testing.T) {
	cfg := settings.Default()
	cfg.DuplicateImagingTask = false
	cfg.ReleaseTasks = false

	plan, err := createTestAssembler(cfg).BuildPlan(PlanInput{
		ProjectNumber: "P24-0815",
		Lead:          "MRG",
		Milestones:    createTestMilestones(),
		Hours:         domain.DepartmentHours{domain.DeptMCAD: 40, domain.DeptImaging: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.TaskKind{domain.KindDispatch, domain.KindSupport}, kinds(plan.Derived))
}

func TestBuildPlan_TodayAnchor(t *testing.T) {
	plan, err := createTestAssembler(settings.Default()).BuildPlan(PlanInput{
		ProjectNumber: "P24-0815",
		Lead:          "MRG",
		Milestones: domain.Milestones{
			domain.AnchorG6: calendar.Date(2025, time.January, 6),
			domain.AnchorG7: calendar.Date(2025, time.March, 3),
			domain.AnchorG8: calendar.Date(2025, time.May, 5),
		},
		Hours: domain.DepartmentHours{domain.DeptProjectManagement: 20},
	})
	require.NoError(t, err)
	require.Len(t, plan.Rows, 1)

	pm := plan.Rows[0]
	assert.Equal(t, calendar.Date(2025, time.February, 5), pm.Start)
	assert.Equal(t, calendar.RollBackward(calendar.Date(2025, time.May, 5)), pm.End)
	assert.Equal(t, "PROJECTMANAGEMENT", pm.ActivityType)
}

func TestBuildPlan_StableOrderForEqualStarts(t *testing.T) {
	plan, err := createTestAssembler(settings.Default()).BuildPlan(PlanInput{
		Lead:       "MRG",
		Milestones: createTestMilestones(),
		Hours:      domain.DepartmentHours{domain.DeptMCAD: 1, domain.DeptECAD: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.Department{domain.DeptECAD, domain.DeptMCAD}, departments(plan.Rows))
}

func TestBuildPlan_Errors(t *testing.T) {
	t.Run("missing rule names department", func(t *testing.T) {
		_, err := createTestAssembler(settings.Default()).BuildPlan(PlanInput{
			Lead:       "MRG",
			Milestones: createTestMilestones(),
			Hours:      domain.DepartmentHours{domain.DeptIPC: 5, domain.DeptMCAD: 10},
		})

		var deptErr *domain.DepartmentError
		require.ErrorAs(t, err, &deptErr)
		assert.Equal(t, domain.DeptIPC, deptErr.Department)
		assert.Empty(t, deptErr.Rule)
		assert.ErrorIs(t, err, domain.ErrMissingRule)
	})

	t.Run("missing milestone names rule", func(t *testing.T) {
		m := createTestMilestones()
		delete(m, domain.AnchorG7)

		_, err := createTestAssembler(settings.Default()).BuildPlan(PlanInput{
			Lead:       "MRG",
			Milestones: m,
			Hours:      domain.DepartmentHours{domain.DeptMCAD: 10},
		})

		var deptErr *domain.DepartmentError
		require.ErrorAs(t, err, &deptErr)
		assert.Equal(t, domain.DeptMCAD, deptErr.Department)
		assert.Equal(t, "(G7, -14, G7, -7)", deptErr.Rule)
		assert.ErrorIs(t, err, domain.ErrMissingMilestone)
	})

	t.Run("every failing department is reported", func(t *testing.T) {
		_, err := createTestAssembler(settings.Default()).BuildPlan(PlanInput{
			Lead:       "MRG",
			Milestones: createTestMilestones(),
			Hours:      domain.DepartmentHours{domain.DeptIPC: 5, domain.DeptTechnikum: 5},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "IPC")
		assert.Contains(t, err.Error(), "TECHNIKUM")
	})
}

func TestBuildPlan_InvertedRuleIsKept(t *testing.T) {
	cfg := settings.Default()
	cfg.DateRules[domain.DeptTD] = domain.NewDateRule(domain.AnchorG8, 0, domain.AnchorG6, 0)

	plan, err := createTestAssembler(cfg).BuildPlan(PlanInput{
		Lead:       "MRG",
		Milestones: createTestMilestones(),
		Hours:      domain.DepartmentHours{domain.DeptTD: 8},
	})
	require.NoError(t, err)

	assert.True(t, plan.Rows[0].Inverted())
	assert.Len(t, plan.Warnings(), 1)
}

func TestNewAssembler_CopiesSettings(t *testing.T) {
	cfg := settings.Default()
	a := createTestAssembler(cfg)

	cfg.DateRules[domain.DeptMCAD] = domain.NewDateRule(domain.AnchorToday, 0, domain.AnchorToday, 0)

	rule, ok := a.engine.Rule(domain.DeptMCAD)
	require.True(t, ok)
	assert.Equal(t, "(G7, -14, G7, -7)", rule.String())
}
