package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/dashboard"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/planner"
	"github.com/robby/pjm/internal/settings"
)

// fakeERP serves plan data, task creation and the dashboard infosystems.
type fakeERP struct {
	lookupErr error
	created   []domain.TaskInstruction
	failAt    int // 1-based CreateTask call that fails, 0 never

	releaseErr error
	released   int
}

func (f *fakeERP) LookupProject(_ context.Context, projectNumber string) (domain.ProjectRef, error) {
	if f.lookupErr != nil {
		return domain.ProjectRef{}, f.lookupErr
	}
	return domain.ProjectRef{ProjectNumber: projectNumber, GatewayID: "(12,1,0)", CalculationNumber: "K-1"}, nil
}

func (f *fakeERP) Milestones(_ context.Context, _ string) (domain.Milestones, error) {
	return domain.Milestones{
		domain.AnchorG6: calendar.Date(2025, time.January, 6),
		domain.AnchorG7: calendar.Date(2025, time.March, 3),
		domain.AnchorG8: calendar.Date(2025, time.May, 5),
	}, nil
}

func (f *fakeERP) CalculationRecords(_ context.Context, _ string) ([]map[string]any, error) {
	return []map[string]any{{"yprjmcad": 40.0, "yprjtd": 10.0}}, nil
}

func (f *fakeERP) CreateTask(_ context.Context, inst domain.TaskInstruction) (string, error) {
	if f.failAt > 0 && len(f.created)+1 == f.failAt {
		return "", errors.New("HTTP 500")
	}
	f.created = append(f.created, inst)
	return fmt.Sprintf("(149,2,%d)", len(f.created)), nil
}

func (f *fakeERP) CreateTaskFolder(_ context.Context, _, _ string, _, _ time.Time) (string, error) {
	return "(149,2,0)", nil
}

func (f *fakeERP) ReleaseTasks(_ context.Context, _ string) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.released++
	return nil
}

func (f *fakeERP) GatewayDashboardByPhase(_ context.Context, phase string) ([]domain.GatewayRow, error) {
	return []domain.GatewayRow{
		{ProjectNumber: "P24-0001", ProjectName: "Inspection line", Phase: phase},
		{ProjectNumber: "P24-0002", ProjectName: "Preform check", Phase: phase},
	}, nil
}

func (f *fakeERP) GatewayDashboardByLead(_ context.Context, lead string) ([]domain.GatewayRow, error) {
	return []domain.GatewayRow{
		{ProjectNumber: "P24-0002", ProjectName: "Preform check", Ampel: domain.AmpelRed, Responsible: lead},
	}, nil
}

func (f *fakeERP) Dispatches(_ context.Context, _ string, _, _ time.Time) ([]domain.DispatchRow, error) {
	return nil, errors.New("infosystem DISPATCH unavailable")
}

func (f *fakeERP) OpenTasks(_ context.Context, _ string) ([]domain.OpenTask, error) {
	return []domain.OpenTask{{Number: "T-17", Title: "Check offer"}}, nil
}

func (f *fakeERP) BookedHours(_ context.Context, _ string, _, _ time.Time) ([]domain.BookedHours, error) {
	return nil, nil
}

func (f *fakeERP) ProjectBudgets(_ context.Context, _ string, _, _ time.Time) ([]domain.OverbookedProject, error) {
	return nil, nil
}

func fixedClock() time.Time { return time.Date(2025, time.February, 10, 9, 0, 0, 0, time.UTC) }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func createTestService(erp *fakeERP) *planner.Service {
	n := 0
	assembler := planner.NewAssembler(settings.Default(),
		planner.WithClock(fixedClock),
		planner.WithIDGenerator(func() string { n++; return fmt.Sprintf("row-%d", n) }),
	)
	return planner.NewService(erp, erp, assembler, discardLogger())
}

func createTestLoader(erp *fakeERP) *dashboard.Loader {
	return dashboard.NewLoader(erp, fixedClock, discardLogger())
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// runCmd executes cmd and any batched commands, returning the produced messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// findMsg returns the first message of type T.
func findMsg[T any](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if m, ok := msg.(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}
