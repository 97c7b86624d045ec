package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/session"
	"github.com/robby/pjm/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ref        domain.ProjectRef
	milestones domain.Milestones
	records    []map[string]any

	lookupErr    error
	milestoneErr error
	recordsErr   error
}

func (f *fakeSource) LookupProject(_ context.Context, projectNumber string) (domain.ProjectRef, error) {
	if f.lookupErr != nil {
		return domain.ProjectRef{}, f.lookupErr
	}
	ref := f.ref
	ref.ProjectNumber = projectNumber
	return ref, nil
}

func (f *fakeSource) Milestones(_ context.Context, gatewayID string) (domain.Milestones, error) {
	if f.milestoneErr != nil {
		return nil, f.milestoneErr
	}
	if gatewayID != f.ref.GatewayID {
		return nil, fmt.Errorf("unexpected gateway %q", gatewayID)
	}
	return f.milestones, nil
}

func (f *fakeSource) CalculationRecords(_ context.Context, calculationNumber string) ([]map[string]any, error) {
	if f.recordsErr != nil {
		return nil, f.recordsErr
	}
	if calculationNumber != f.ref.CalculationNumber {
		return nil, fmt.Errorf("unexpected calculation %q", calculationNumber)
	}
	return f.records, nil
}

type fakeCreator struct {
	created  []domain.TaskInstruction
	folders  []string
	released []string
	failAt   int // 1-based index of the failing CreateTask call, 0 never fails

	releaseErr error
}

func (f *fakeCreator) CreateTask(_ context.Context, inst domain.TaskInstruction) (string, error) {
	if f.failAt > 0 && len(f.created)+1 == f.failAt {
		return "", errors.New("HTTP 500")
	}
	f.created = append(f.created, inst)
	return fmt.Sprintf("(149,2,%d)", len(f.created)), nil
}

func (f *fakeCreator) CreateTaskFolder(_ context.Context, projectNumber, label string, start, end time.Time) (string, error) {
	f.folders = append(f.folders, fmt.Sprintf("%s|%s|%s|%s", projectNumber, label,
		calendar.FormatERPDate(start), calendar.FormatERPDate(end)))
	return "(149,2,0)", nil
}

func (f *fakeCreator) ReleaseTasks(_ context.Context, projectNumber string) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.released = append(f.released, projectNumber)
	return nil
}

func createTestSource() *fakeSource {
	return &fakeSource{
		ref: domain.ProjectRef{GatewayID: "(32,0,7)", GatewayNumber: "GW-7", CalculationNumber: "K-100"},
		milestones: domain.Milestones{
			domain.AnchorG6: calendar.Date(2025, time.January, 6),
			domain.AnchorG7: calendar.Date(2025, time.March, 3),
			domain.AnchorG8: calendar.Date(2025, time.May, 5),
		},
		records: []map[string]any{
			{"yprjas": 12.0, "yprjmcad": "30,5"},
			{"yprjas": 8.0, "yprjecad": 0.0},
		},
	}
}

func createTestService(source ProjectSource, creator TaskCreator) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(source, creator, createTestAssembler(settings.Default()), logger)
}

func TestService_Load(t *testing.T) {
	svc := createTestService(createTestSource(), &fakeCreator{})
	sess := session.New()

	plan, err := svc.Load(context.Background(), sess, "P24-0815", "MRG")
	require.NoError(t, err)

	assert.Equal(t, session.PlanDrafted, sess.State())
	assert.Equal(t, domain.DepartmentHours{
		domain.DeptProjectManagement: 20,
		domain.DeptMCAD:              30.5,
		domain.DeptECAD:              0,
	}, sess.Hours())
	assert.Equal(t, []domain.Department{domain.DeptProjectManagement, domain.DeptMCAD}, departments(plan.Rows))
	assert.Equal(t, calendar.Date(2025, time.February, 5), plan.Rows[0].Start)
	assert.Equal(t, "GW-7", sess.Ref().GatewayNumber)
}

func TestService_LoadFailures(t *testing.T) {
	refused := errors.New("connection refused")

	tests := []struct {
		name   string
		mutate func(*fakeSource)
		target error
	}{
		{"lookup", func(f *fakeSource) { f.lookupErr = refused }, refused},
		{"milestones", func(f *fakeSource) { f.milestoneErr = refused }, refused},
		{"hours", func(f *fakeSource) { f.recordsErr = refused }, refused},
		{"incomplete milestones", func(f *fakeSource) { delete(f.milestones, domain.AnchorG8) }, domain.ErrMissingMilestone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := createTestSource()
			tt.mutate(source)
			svc := createTestService(source, &fakeCreator{})
			sess := session.New()

			_, err := svc.Load(context.Background(), sess, "P24-0815", "MRG")

			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, session.ProjectEntered, sess.State())
			assert.ErrorIs(t, sess.Err(), tt.target)
		})
	}
}

func TestService_Commit(t *testing.T) {
	creator := &fakeCreator{}
	svc := createTestService(createTestSource(), creator)
	sess := session.New()

	plan, err := svc.Load(context.Background(), sess, "P24-0815", "MRG")
	require.NoError(t, err)

	result, err := svc.Commit(context.Background(), sess, CommitOptions{Folder: true, Release: true})
	require.NoError(t, err)

	assert.Equal(t, session.Committed, sess.State())
	assert.Len(t, result.TaskIDs, len(plan.All()))
	assert.Equal(t, "(149,2,0)", result.FolderID)
	assert.True(t, result.Released)
	assert.Equal(t, []string{"P24-0815"}, creator.released)
	assert.Equal(t, []string{"P24-0815|P24-0815|05.02.2025|05.05.2025"}, creator.folders)

	// creation order follows the plan
	for i, row := range plan.All() {
		assert.Equal(t, row.ID, creator.created[i].RowID)
	}
	assert.True(t, creator.created[len(creator.created)-2].Milestone)
}

func TestService_CommitStopsOnFailure(t *testing.T) {
	creator := &fakeCreator{failAt: 2}
	svc := createTestService(createTestSource(), creator)
	sess := session.New()

	_, err := svc.Load(context.Background(), sess, "P24-0815", "MRG")
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), sess, CommitOptions{Release: true})

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, 1, commitErr.Index)
	assert.Len(t, commitErr.Partial.TaskIDs, 1)
	assert.Empty(t, creator.released)
	assert.Equal(t, session.PlanDrafted, sess.State())
}

func TestService_CommitResumesAfterFailedRow(t *testing.T) {
	creator := &fakeCreator{failAt: 3}
	svc := createTestService(createTestSource(), creator)
	sess := session.New()

	plan, err := svc.Load(context.Background(), sess, "P24-0815", "MRG")
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), sess, CommitOptions{Folder: true})
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, 2, commitErr.Index)
	assert.Len(t, sess.Progress().TaskIDs, 2)
	assert.Equal(t, "(149,2,0)", sess.Progress().FolderID)

	t.Run("plan is fixed once tasks exist", func(t *testing.T) {
		_, err := svc.Edit(sess, UpdateRow(plan.Rows[0].ID).WithHours(1))
		assert.ErrorIs(t, err, session.ErrInvalidTransition)
	})

	creator.failAt = 0
	result, err := svc.Commit(context.Background(), sess, CommitOptions{Folder: true})
	require.NoError(t, err)

	assert.Equal(t, session.Committed, sess.State())
	assert.Len(t, creator.folders, 1)
	require.Len(t, creator.created, len(plan.All()))
	for i, row := range plan.All() {
		assert.Equal(t, row.ID, creator.created[i].RowID)
	}
	assert.Equal(t, []string{"(149,2,1)", "(149,2,2)", "(149,2,3)", "(149,2,4)", "(149,2,5)"}, result.TaskIDs)
}

func TestService_CommitRetriesOnlyRelease(t *testing.T) {
	creator := &fakeCreator{releaseErr: errors.New("HTTP 500")}
	svc := createTestService(createTestSource(), creator)
	sess := session.New()

	plan, err := svc.Load(context.Background(), sess, "P24-0815", "MRG")
	require.NoError(t, err)

	result, err := svc.Commit(context.Background(), sess, CommitOptions{Release: true})
	assert.ErrorIs(t, err, ErrReleaseFailed)
	assert.Equal(t, session.Committed, sess.State())
	assert.Len(t, result.TaskIDs, len(plan.All()))
	assert.False(t, result.Released)

	creator.releaseErr = nil
	result, err = svc.Commit(context.Background(), sess, CommitOptions{Release: true})
	require.NoError(t, err)
	assert.True(t, result.Released)
	assert.Len(t, result.TaskIDs, len(plan.All()))
	assert.Len(t, creator.created, len(plan.All()))
	assert.Equal(t, []string{"P24-0815"}, creator.released)

	t.Run("committed session creates nothing", func(t *testing.T) {
		again, err := svc.Commit(context.Background(), sess, CommitOptions{Folder: true, Release: true})
		require.NoError(t, err)
		assert.True(t, again.Released)
		assert.Len(t, creator.created, len(plan.All()))
		assert.Empty(t, creator.folders)
		assert.Len(t, creator.released, 1)
	})
}

func TestService_CommitRefusesInvertedRows(t *testing.T) {
	creator := &fakeCreator{}
	svc := createTestService(createTestSource(), creator)
	sess := session.New()

	plan, err := svc.Load(context.Background(), sess, "P24-0815", "MRG")
	require.NoError(t, err)

	_, err = svc.Edit(sess, UpdateRow(plan.Rows[1].ID).WithStart(calendar.Date(2025, time.April, 1)))
	require.NoError(t, err)
	assert.Equal(t, session.PlanEdited, sess.State())

	_, err = svc.Commit(context.Background(), sess, CommitOptions{})
	assert.ErrorIs(t, err, ErrInvertedRows)
	assert.Empty(t, creator.created)

	_, err = svc.Commit(context.Background(), sess, CommitOptions{Force: true})
	require.NoError(t, err)
	assert.NotEmpty(t, creator.created)
}

func TestService_CommitWithoutPlan(t *testing.T) {
	svc := createTestService(createTestSource(), &fakeCreator{})

	_, err := svc.Commit(context.Background(), session.New(), CommitOptions{})
	assert.ErrorIs(t, err, session.ErrNoPlan)
}
