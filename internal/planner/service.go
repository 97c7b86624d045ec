package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/hours"
	"github.com/robby/pjm/internal/session"
)

var (
	// ErrInvertedRows indicates a commit of a plan with rows ending before they start.
	ErrInvertedRows = errors.New("plan has rows that end before they start")
	// ErrReleaseFailed indicates all tasks were created but releasing them to
	// the departments failed.
	ErrReleaseFailed = errors.New("releasing tasks to departments")
)

// ProjectSource fetches the ERP data a plan is built from.
type ProjectSource interface {
	LookupProject(ctx context.Context, projectNumber string) (domain.ProjectRef, error)
	Milestones(ctx context.Context, gatewayID string) (domain.Milestones, error)
	CalculationRecords(ctx context.Context, calculationNumber string) ([]map[string]any, error)
}

// TaskCreator creates tasks in the ERP.
type TaskCreator interface {
	CreateTask(ctx context.Context, inst domain.TaskInstruction) (string, error)
	CreateTaskFolder(ctx context.Context, projectNumber, label string, start, end time.Time) (string, error)
	ReleaseTasks(ctx context.Context, projectNumber string) error
}

// CommitOptions controls the side effects of a commit.
type CommitOptions struct {
	Folder      bool   // create a task folder spanning the plan first
	FolderLabel string // defaults to the project number
	Release     bool   // release the created tasks to the departments afterwards
	Force       bool   // commit even with inverted rows
}

// CommitResult lists what a commit created.
type CommitResult struct {
	FolderID string
	TaskIDs  []string // in instruction order
	Released bool
}

// CommitError reports the instruction that failed and what was created before it.
type CommitError struct {
	Index       int
	Instruction domain.TaskInstruction
	Partial     CommitResult
	Err         error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("creating task %d (%s %q): %v, %d task(s) already created",
		e.Index+1, e.Instruction.Assignee, e.Instruction.Label, e.Err, len(e.Partial.TaskIDs))
}

func (e *CommitError) Unwrap() error { return e.Err }

// Service drives a planning session against the ERP.
type Service struct {
	source    ProjectSource
	creator   TaskCreator
	assembler *Assembler
	logger    *slog.Logger
}

// NewService wires a service. A nil logger uses slog.Default().
func NewService(source ProjectSource, creator TaskCreator, assembler *Assembler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, creator: creator, assembler: assembler, logger: logger}
}

// Assembler returns the service's assembler.
func (s *Service) Assembler() *Assembler { return s.assembler }

// Load fetches milestones and hours for a project and drafts its plan. A failed
// fetch returns the session to ProjectEntered with the error recorded.
func (s *Service) Load(ctx context.Context, sess *session.Session, projectNumber, lead string) (domain.TaskPlan, error) {
	if err := sess.EnterProject(projectNumber, lead); err != nil {
		return domain.TaskPlan{}, err
	}
	fail := func(step string, err error) (domain.TaskPlan, error) {
		err = fmt.Errorf("%s for %s: %w", step, projectNumber, err)
		sess.Fail(err)
		s.logger.Warn("plan load failed", "project", projectNumber, "step", step, "error", err)
		return domain.TaskPlan{}, err
	}

	ref, err := s.source.LookupProject(ctx, projectNumber)
	if err != nil {
		return fail("looking up project", err)
	}
	if err := sess.SetProjectRef(ref); err != nil {
		return domain.TaskPlan{}, err
	}

	milestones, err := s.source.Milestones(ctx, ref.GatewayID)
	if err != nil {
		return fail("fetching milestones", err)
	}
	if err := sess.SetMilestones(milestones); err != nil {
		return fail("fetching milestones", err)
	}

	records, err := s.source.CalculationRecords(ctx, ref.CalculationNumber)
	if err != nil {
		return fail("fetching calculation hours", err)
	}
	if err := sess.SetHours(hours.Aggregate(records)); err != nil {
		return domain.TaskPlan{}, err
	}

	plan, err := s.assembler.BuildPlan(PlanInput{
		ProjectNumber: projectNumber,
		Lead:          lead,
		Milestones:    sess.Milestones(),
		Hours:         sess.Hours(),
	})
	if err != nil {
		return fail("building plan", err)
	}
	if err := sess.SetDraft(plan); err != nil {
		return domain.TaskPlan{}, err
	}

	s.logger.Info("plan drafted",
		"project", projectNumber,
		"rows", len(plan.Rows),
		"derived", len(plan.Derived),
		"hours", plan.TotalHours(),
	)
	return plan, nil
}

// Edit applies edits to the session's plan.
func (s *Service) Edit(sess *session.Session, edits ...Edit) (domain.TaskPlan, error) {
	plan, err := sess.Plan()
	if err != nil {
		return domain.TaskPlan{}, err
	}
	edited, err := s.assembler.ApplyEdits(plan, edits)
	if err != nil {
		return domain.TaskPlan{}, err
	}
	if err := sess.ApplyEdit(edited); err != nil {
		return domain.TaskPlan{}, err
	}
	return edited, nil
}

// Commit creates the session's plan in the ERP, one task at a time in plan
// order. A failure stops the commit and is returned as *CommitError; what was
// created so far is kept in the session and the next Commit resumes after it.
// Once every task exists the session is committed; a failed release is then
// retried on its own by calling Commit again.
func (s *Service) Commit(ctx context.Context, sess *session.Session, opts CommitOptions) (CommitResult, error) {
	if sess.State() == session.Committed {
		return s.release(ctx, sess, opts)
	}

	plan, err := sess.Plan()
	if err != nil {
		return CommitResult{}, err
	}
	if warnings := plan.Warnings(); len(warnings) > 0 && !opts.Force {
		return CommitResult{}, fmt.Errorf("%w: %v", ErrInvertedRows, warnings)
	}

	instructions, err := s.assembler.Instructions(plan)
	if err != nil {
		return CommitResult{}, err
	}

	progress := sess.Progress()
	result := CommitResult{FolderID: progress.FolderID, TaskIDs: progress.TaskIDs}
	if len(result.TaskIDs) > len(instructions) {
		return result, fmt.Errorf("%w: %d task(s) created for a plan of %d", session.ErrInvalidTransition, len(result.TaskIDs), len(instructions))
	}
	if progress.Started() {
		s.logger.Info("resuming commit", "project", plan.ProjectNumber, "created", len(result.TaskIDs), "folder", result.FolderID)
	}

	if opts.Folder && result.FolderID == "" {
		label := opts.FolderLabel
		if label == "" {
			label = plan.ProjectNumber
		}
		start, end := span(instructions)
		id, err := s.creator.CreateTaskFolder(ctx, plan.ProjectNumber, label, start, end)
		if err != nil {
			return result, fmt.Errorf("creating task folder: %w", err)
		}
		result.FolderID = id
		if err := sess.RecordProgress(result.FolderID, result.TaskIDs); err != nil {
			return result, err
		}
	}

	for i := len(result.TaskIDs); i < len(instructions); i++ {
		inst := instructions[i]
		id, err := s.creator.CreateTask(ctx, inst)
		if err != nil {
			s.logger.Error("task creation failed", "project", plan.ProjectNumber, "index", i, "label", inst.Label, "error", err)
			return result, &CommitError{Index: i, Instruction: inst, Partial: result, Err: err}
		}
		result.TaskIDs = append(result.TaskIDs, id)
		if err := sess.RecordProgress(result.FolderID, result.TaskIDs); err != nil {
			return result, err
		}
		s.logger.Debug("task created", "project", plan.ProjectNumber, "id", id, "assignee", inst.Assignee, "label", inst.Label)
	}

	if err := sess.MarkCommitted(result.TaskIDs); err != nil {
		return result, err
	}
	s.logger.Info("plan committed", "project", plan.ProjectNumber, "tasks", len(result.TaskIDs))

	return s.release(ctx, sess, opts)
}

// release runs the optional release step of a committed session. It never
// creates tasks.
func (s *Service) release(ctx context.Context, sess *session.Session, opts CommitOptions) (CommitResult, error) {
	progress := sess.Progress()
	result := CommitResult{FolderID: progress.FolderID, TaskIDs: progress.TaskIDs, Released: progress.Released}
	if !opts.Release || progress.Released {
		return result, nil
	}

	if err := s.creator.ReleaseTasks(ctx, sess.ProjectNumber()); err != nil {
		s.logger.Error("task release failed", "project", sess.ProjectNumber(), "error", err)
		return result, fmt.Errorf("%w: %w", ErrReleaseFailed, err)
	}
	if err := sess.MarkReleased(); err != nil {
		return result, err
	}
	result.Released = true
	s.logger.Info("tasks released", "project", sess.ProjectNumber())
	return result, nil
}

// span returns the earliest start and latest end over all instructions.
func span(instructions []domain.TaskInstruction) (start, end time.Time) {
	for _, inst := range instructions {
		if start.IsZero() || inst.Start.Before(start) {
			start = inst.Start
		}
		if inst.End.After(end) {
			end = inst.End
		}
	}
	return start, end
}
