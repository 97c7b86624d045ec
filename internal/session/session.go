// Package session tracks one planning session for a single project. It enforces
// the order in which ERP data arrives (project, milestones, hours) before a plan
// can be drafted, edited and committed.
package session

import (
	"errors"
	"fmt"

	"github.com/robby/pjm/internal/domain"
)

var (
	// ErrInvalidTransition indicates a step was attempted out of order.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNoPlan indicates no plan has been drafted yet.
	ErrNoPlan = errors.New("no plan drafted")
)

// State is the position of a session in its lifecycle.
type State int

const (
	Empty State = iota
	ProjectEntered
	MilestonesLoaded
	HoursLoaded
	PlanDrafted
	PlanEdited
	Committed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case ProjectEntered:
		return "project entered"
	case MilestonesLoaded:
		return "milestones loaded"
	case HoursLoaded:
		return "hours loaded"
	case PlanDrafted:
		return "plan drafted"
	case PlanEdited:
		return "plan edited"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns the data of one planning session. It is not safe for concurrent use.
type Session struct {
	state State

	projectNumber string
	lead          string
	ref           domain.ProjectRef
	milestones    domain.Milestones
	hours         domain.DepartmentHours

	plan     domain.TaskPlan
	progress Progress

	// Last fetch failure, cleared on the next successful step
	err error
}

// Progress is what a commit has written to the ERP so far.
type Progress struct {
	FolderID string
	TaskIDs  []string // in instruction order
	Released bool
}

// Started reports whether anything was created in the ERP.
func (p Progress) Started() bool {
	return p.FolderID != "" || len(p.TaskIDs) > 0
}

// New creates an empty session.
func New() *Session {
	return &Session{}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Err returns the failure that last sent the session back to ProjectEntered.
func (s *Session) Err() error { return s.err }

// ProjectNumber returns the entered project number.
func (s *Session) ProjectNumber() string { return s.projectNumber }

// Lead returns the acting project lead.
func (s *Session) Lead() string { return s.lead }

// Ref returns the ERP identifiers resolved for the project.
func (s *Session) Ref() domain.ProjectRef { return s.ref }

// Milestones returns the loaded milestone set.
func (s *Session) Milestones() domain.Milestones { return s.milestones }

// Hours returns the loaded department hours.
func (s *Session) Hours() domain.DepartmentHours { return s.hours }

// Created returns the ERP IDs of tasks created by the commit.
func (s *Session) Created() []string { return s.progress.TaskIDs }

// Progress returns what was created in the ERP, including by a commit that
// stopped part way.
func (s *Session) Progress() Progress {
	p := s.progress
	p.TaskIDs = append([]string(nil), p.TaskIDs...)
	return p
}

// Plan returns the current plan, or ErrNoPlan before one was drafted.
func (s *Session) Plan() (domain.TaskPlan, error) {
	if s.state < PlanDrafted {
		return domain.TaskPlan{}, ErrNoPlan
	}
	return s.plan, nil
}

// EnterProject starts (or restarts) the session for a project. Any loaded data
// is discarded. Not allowed once the session is committed.
func (s *Session) EnterProject(projectNumber, lead string) error {
	if s.state == Committed {
		return s.invalid("enter project")
	}
	*s = Session{state: ProjectEntered, projectNumber: projectNumber, lead: lead}
	return nil
}

// SetProjectRef records the ERP identifiers resolved for the entered project.
func (s *Session) SetProjectRef(ref domain.ProjectRef) error {
	if s.state != ProjectEntered {
		return s.invalid("set project reference")
	}
	s.ref = ref
	return nil
}

// SetMilestones records the gateway dates. All of G6, G7 and G8 are required.
func (s *Session) SetMilestones(m domain.Milestones) error {
	if s.state != ProjectEntered {
		return s.invalid("load milestones")
	}
	if missing := m.Missing(); len(missing) > 0 {
		return &domain.MissingMilestoneError{Anchor: missing[0]}
	}
	s.milestones = m
	s.err = nil
	s.state = MilestonesLoaded
	return nil
}

// SetHours records the aggregated department hours.
func (s *Session) SetHours(h domain.DepartmentHours) error {
	if s.state != MilestonesLoaded {
		return s.invalid("load hours")
	}
	s.hours = h
	s.state = HoursLoaded
	return nil
}

// SetDraft stores the freshly built plan.
func (s *Session) SetDraft(plan domain.TaskPlan) error {
	if s.state != HoursLoaded {
		return s.invalid("draft plan")
	}
	s.plan = plan
	s.state = PlanDrafted
	return nil
}

// ApplyEdit replaces the plan with an edited version. Once tasks were created
// the plan is fixed so an interrupted commit can resume where it stopped.
func (s *Session) ApplyEdit(plan domain.TaskPlan) error {
	if s.state != PlanDrafted && s.state != PlanEdited {
		return s.invalid("edit plan")
	}
	if s.progress.Started() {
		return s.invalid("edit plan with tasks already created")
	}
	s.plan = plan
	s.state = PlanEdited
	return nil
}

// RecordProgress stores what an unfinished commit has created so far.
func (s *Session) RecordProgress(folderID string, taskIDs []string) error {
	if s.state != PlanDrafted && s.state != PlanEdited {
		return s.invalid("record commit progress")
	}
	s.progress.FolderID = folderID
	s.progress.TaskIDs = append([]string(nil), taskIDs...)
	return nil
}

// MarkCommitted records the created task IDs and ends the session.
func (s *Session) MarkCommitted(created []string) error {
	if s.state != PlanDrafted && s.state != PlanEdited {
		return s.invalid("commit")
	}
	s.progress.TaskIDs = append([]string(nil), created...)
	s.state = Committed
	return nil
}

// MarkReleased records that the committed tasks were released to the departments.
func (s *Session) MarkReleased() error {
	if s.state != Committed {
		return s.invalid("release tasks")
	}
	s.progress.Released = true
	return nil
}

// Fail records a failed fetch and returns the session to ProjectEntered,
// dropping everything loaded after the project was entered.
func (s *Session) Fail(err error) {
	if s.state == Empty || s.state == Committed {
		s.err = err
		return
	}
	*s = Session{
		state:         ProjectEntered,
		projectNumber: s.projectNumber,
		lead:          s.lead,
		err:           err,
	}
}

func (s *Session) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, action, s.state)
}
