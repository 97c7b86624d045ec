package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/dashboard"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/planner"
)

func createTestPlan() domain.TaskPlan {
	return domain.TaskPlan{
		ProjectNumber: "P24-0815",
		Lead:          "MRG",
		Milestones: domain.Milestones{
			domain.AnchorG6: calendar.Date(2025, time.January, 6),
			domain.AnchorG7: calendar.Date(2025, time.March, 3),
			domain.AnchorG8: calendar.Date(2025, time.May, 5),
		},
		Rows: []domain.TaskRow{
			{
				ID: "row-1", Kind: domain.KindDepartment, Department: domain.DeptMCAD, Hours: 40, Label: "Konstruktion",
				Start: calendar.Date(2025, time.February, 17), End: calendar.Date(2025, time.February, 21), ActivityType: "MCAD",
			},
			{
				ID: "row-2", Kind: domain.KindDepartment, Department: domain.DeptTD, Hours: 12.5, Label: "Dokumentation",
				Start: calendar.Date(2025, time.May, 5), End: calendar.Date(2025, time.January, 6), ActivityType: "TD",
			},
		},
		Derived: []domain.TaskRow{
			{
				ID: "derived:dispatch", Kind: domain.KindDispatch, Department: domain.DeptProjectManagement, Label: "Dispatch",
				Start: calendar.Date(2025, time.May, 5), End: calendar.Date(2025, time.May, 5),
			},
		},
	}
}

func TestNewFormatter(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatJSON, FormatYAML} {
		f, err := NewFormatter(format, nil)
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	_, err := NewFormatter("xml", nil)
	assert.ErrorContains(t, err, "unknown format: xml")
}

func TestNewPlanView(t *testing.T) {
	v := NewPlanView(createTestPlan())

	assert.Equal(t, "P24-0815", v.Project)
	assert.Equal(t, map[string]string{"G6": "2025-01-06", "G7": "2025-03-03", "G8": "2025-05-05"}, v.Milestones)
	require.Len(t, v.Rows, 3)
	assert.Equal(t, "department", v.Rows[0].Kind)
	assert.Equal(t, "2025-02-17", v.Rows[0].Start)
	assert.True(t, v.Rows[1].Inverted)
	assert.Equal(t, "dispatch", v.Rows[2].Kind)
	assert.InDelta(t, 52.5, v.TotalHours, 1e-9)
	assert.Len(t, v.Warnings, 1)
}

func TestJSONFormatter_Plan(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(FormatJSON, &Options{Writer: &buf})
	require.NoError(t, err)
	require.NoError(t, f.Format(NewPlanView(createTestPlan())))

	var got PlanView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, NewPlanView(createTestPlan()), got)
	assert.NotContains(t, buf.String(), `"activity_type": ""`)
}

func TestYAMLFormatter_Plan(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(FormatYAML, &Options{Writer: &buf})
	require.NoError(t, err)
	require.NoError(t, f.Format(NewPlanView(createTestPlan())))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "P24-0815", got["project"])
	assert.Contains(t, buf.String(), "activity_type: MCAD")
	assert.Contains(t, buf.String(), "inverted: true")
}

func TestTextFormatter_Plan(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(FormatText, &Options{Writer: &buf, NoColor: true, Width: 8})
	require.NoError(t, err)
	require.NoError(t, f.Format(NewPlanView(createTestPlan())))

	out := buf.String()
	assert.Contains(t, out, "Project P24-0815 (lead MRG)")
	assert.Contains(t, out, "G7 2025-03-03")
	assert.Contains(t, out, "2025-02-17")
	assert.Contains(t, out, "Dokumen…")
	assert.Contains(t, out, "Total hours: 52.5")
	assert.Contains(t, out, "warning: TD")
}

func TestTextFormatter_Commit(t *testing.T) {
	var buf bytes.Buffer
	f, _ := NewFormatter(FormatText, &Options{Writer: &buf})
	view := NewCommitView("P24-0815", planner.CommitResult{FolderID: "F1", TaskIDs: []string{"a", "b"}, Released: true})

	require.NoError(t, f.Format(view))
	assert.Equal(t, "Created 2 task(s) for P24-0815 in folder F1, released to departments\n", buf.String())
}

func TestTextFormatter_Unsupported(t *testing.T) {
	f, _ := NewFormatter(FormatText, &Options{Writer: &bytes.Buffer{}})
	assert.Error(t, f.Format(struct{ X int }{1}))
}

func createTestDashboard() dashboard.Dashboard {
	return dashboard.Dashboard{
		Lead:  "MRG",
		Today: calendar.Date(2025, time.February, 10),
		SoldPhase: dashboard.Section[domain.GatewayRow]{
			Title: "Projects in Sold Phase",
			Rows:  []domain.GatewayRow{{ProjectNumber: "P24-0001", ProjectName: "Inspection line"}},
		},
		LeadProjects: dashboard.Section[domain.GatewayRow]{
			Title: "My projects",
			Rows: []domain.GatewayRow{
				{ProjectNumber: "P24-0002", Ampel: domain.AmpelRed},
				{ProjectNumber: "P24-0003", Ampel: domain.AmpelBlue},
			},
		},
		Dispatches: dashboard.Section[domain.DispatchRow]{Title: "Dispatches", Err: errors.New("gateway timeout")},
		Overbooked: dashboard.Section[domain.OverbookedProject]{
			Title: "Overbooked projects",
			Rows:  []domain.OverbookedProject{{ProjectNumber: "P24-0004", Percent: 112.5}},
		},
		OpenTasks:   dashboard.Section[domain.OpenTask]{Title: "Open ABAS tasks"},
		BookedHours: dashboard.Section[domain.BookedHours]{Title: "Booked hours"},
	}
}

func TestNewDashboardView(t *testing.T) {
	v := NewDashboardView(createTestDashboard())

	assert.Equal(t, "2025-02-10", v.Today)
	require.Len(t, v.Sections, 7)
	assert.Equal(t, [][]string{{"P24-0002", "", "", "", "", ""}}, v.Sections[1].Rows)
	assert.Equal(t, "P24-0003", v.Sections[2].Rows[0][0])
	assert.Equal(t, "gateway timeout", v.Sections[3].Error)
	assert.Empty(t, v.Sections[3].Rows)
	assert.Equal(t, "112.5", v.Sections[5].Rows[0][2])
}

func TestTextFormatter_Dashboard(t *testing.T) {
	var buf bytes.Buffer
	f, _ := NewFormatter(FormatText, &Options{Writer: &buf, NoColor: true})
	require.NoError(t, f.Format(NewDashboardView(createTestDashboard())))

	out := buf.String()
	assert.Contains(t, out, "Dashboard MRG (2025-02-10)")
	assert.Contains(t, out, "Inspection line")
	assert.Contains(t, out, "unavailable: gateway timeout")
	assert.Contains(t, out, "nothing to show")
	assert.Contains(t, out, "P24-0004")
}
