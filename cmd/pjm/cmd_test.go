package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/planner"
	"github.com/robby/pjm/internal/settings"
)

func createTestPlan() domain.TaskPlan {
	start := time.Date(2025, time.February, 17, 0, 0, 0, 0, time.UTC)
	return domain.TaskPlan{
		ProjectNumber: "P24-0815",
		Rows: []domain.TaskRow{
			{ID: "row-1", Kind: domain.KindDepartment, Department: domain.DeptMCAD, Hours: 40, Start: start, End: start},
			{ID: "row-2", Kind: domain.KindDepartment, Department: domain.DeptTD, Hours: 8, Start: start, End: start},
		},
	}
}

func withPlanFlags(t *testing.T, hours, remove, add []string) {
	t.Helper()
	planHoursFlag, planRemoveFlag, planAddFlag = hours, remove, add
	t.Cleanup(func() { planHoursFlag, planRemoveFlag, planAddFlag = nil, nil, nil })
}

func TestPlanEdits(t *testing.T) {
	withPlanFlags(t, []string{"mcad=32,5"}, []string{"TD"}, []string{"software"})

	edits, err := planEdits(createTestPlan())
	require.NoError(t, err)
	require.Len(t, edits, 3)

	assert.Equal(t, planner.EditUpdate, edits[0].Op)
	assert.Equal(t, "row-1", edits[0].RowID)
	require.NotNil(t, edits[0].Hours)
	assert.Equal(t, 32.5, *edits[0].Hours)

	assert.Equal(t, planner.EditRemove, edits[1].Op)
	assert.Equal(t, "row-2", edits[1].RowID)

	assert.Equal(t, planner.EditAdd, edits[2].Op)
	assert.Equal(t, domain.DeptSoftware, *edits[2].Department)
}

func TestPlanEdits_Errors(t *testing.T) {
	tests := []struct {
		name   string
		hours  []string
		remove []string
		add    []string
		want   string
	}{
		{"missing equals", []string{"MCAD"}, nil, nil, "want DEPARTMENT=HOURS"},
		{"not a number", []string{"MCAD=lots"}, nil, nil, "not a number"},
		{"row not in plan", []string{"ECAD=3"}, nil, nil, "no ECAD row"},
		{"unknown department", nil, []string{"HR"}, nil, "unknown department"},
		{"unknown added department", nil, nil, []string{"HR"}, "unknown department"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPlanFlags(t, tt.hours, tt.remove, tt.add)
			_, err := planEdits(createTestPlan())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDepartmentRow_NotFound(t *testing.T) {
	_, err := departmentRow(createTestPlan(), "ECAD")
	assert.ErrorIs(t, err, planner.ErrRowNotFound)
}

func TestSettingsValues_Apply(t *testing.T) {
	cfg := settings.Default()
	v := newSettingsValues(cfg)

	assert.Equal(t, "(G7, -14, G7, -7)", *v.rules[domain.DeptMCAD])
	assert.Empty(t, *v.rules[domain.DeptIPC], "IPC has no default rule")

	*v.rules[domain.DeptMCAD] = "G7, -21, G7, -7"
	*v.rules[domain.DeptTD] = ""
	*v.names[domain.DeptECAD] = "Schaltplan"
	v.ipcPerson = " abc "
	v.releaseTasks = false

	updated, err := v.apply(cfg)
	require.NoError(t, err)

	assert.Equal(t, domain.NewDateRule(domain.AnchorG7, -21, domain.AnchorG7, -7), updated.DateRules[domain.DeptMCAD])
	assert.NotContains(t, updated.DateRules, domain.DeptTD)
	assert.Equal(t, "Schaltplan", updated.TaskNames[domain.DeptECAD])
	assert.Equal(t, "ABC", updated.IPCPerson)
	assert.False(t, updated.ReleaseTasks)

	assert.Contains(t, cfg.DateRules, domain.DeptTD, "input settings are untouched")
}

func TestSettingsValues_ApplyRejectsBadRule(t *testing.T) {
	cfg := settings.Default()
	v := newSettingsValues(cfg)
	*v.rules[domain.DeptMCAD] = "(G9, 0, G7, 0)"

	_, err := v.apply(cfg)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "date_rules.MCAD")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateBaseAddress("https://abas.example.com/edp"))
	assert.Error(t, validateBaseAddress("abas.example.com"))
	assert.Error(t, validateBaseAddress("ftp://abas.example.com"))

	assert.NoError(t, validateRequired("IPC"))
	assert.Error(t, validateRequired("  "))

	assert.NoError(t, validateOptionalRule(""))
	assert.NoError(t, validateOptionalRule("(TODAY, -5, G8, 0)"))
	assert.Error(t, validateOptionalRule("(TODAY, -5)"))
}

func TestWarnMalformed(t *testing.T) {
	t.Run("malformed settings only warn", func(t *testing.T) {
		var buf bytes.Buffer
		err := warnMalformed(&buf, &settings.MalformedError{Path: "s.json", Err: errors.New("bad json")})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "warning: settings file s.json is malformed")
	})

	t.Run("other errors pass through", func(t *testing.T) {
		var buf bytes.Buffer
		readErr := errors.New("permission denied")
		assert.ErrorIs(t, warnMalformed(&buf, readErr), readErr)
		assert.Empty(t, buf.String())
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, warnMalformed(&bytes.Buffer{}, nil))
	})
}

func TestLoadEditableSettings(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { settingsFlag = "" })

	t.Run("malformed file is refused", func(t *testing.T) {
		settingsFlag = filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(settingsFlag, []byte(`{"task_names": [`), 0o644))

		_, _, err := loadEditableSettings()
		var malformed *settings.MalformedError
		require.ErrorAs(t, err, &malformed)
		assert.Contains(t, err.Error(), "pjm settings reset")

		data, err := os.ReadFile(settingsFlag)
		require.NoError(t, err)
		assert.Equal(t, `{"task_names": [`, string(data))
	})

	t.Run("missing file edits the defaults", func(t *testing.T) {
		settingsFlag = filepath.Join(dir, "absent.json")

		p, cfg, err := loadEditableSettings()
		require.NoError(t, err)
		assert.Equal(t, settingsFlag, p)
		assert.Equal(t, settings.Default(), cfg)
	})
}
