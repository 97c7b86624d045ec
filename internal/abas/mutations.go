package abas

import (
	"context"
	"fmt"
	"time"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
)

// Task types of the ypvtyp field.
const (
	taskTypeMilestone = "Meilenstein"
	taskTypeFolder    = "Sammelvorgang"
)

// TaskFields builds the create payload for a task instruction. The hour budget
// is written to the target, planned and forecast fields alike.
func TaskFields(inst domain.TaskInstruction) []Field {
	fields := []Field{{Name: "yprojekt", Value: inst.ProjectNumber}}

	if inst.Milestone {
		return append(fields,
			Field{Name: "ypersonal", Value: inst.Assignee},
			Field{Name: "yadatum", Value: calendar.FormatERPDate(inst.Start)},
			Field{Name: "yedatum", Value: calendar.FormatERPDate(inst.End)},
			Field{Name: "ypvtyp", Value: taskTypeMilestone},
			Field{Name: "namebspr", Value: inst.Label},
		)
	}

	if inst.AssigneeKind == domain.AssignPerson {
		fields = append(fields, Field{Name: "ypersonal", Value: inst.Assignee})
	} else {
		fields = append(fields, Field{Name: "yprojteam", Value: inst.Assignee})
	}
	return append(fields,
		Field{Name: "namebspr", Value: inst.Label},
		Field{Name: "yleiart", Value: inst.ActivityType},
		Field{Name: "ypvsollstd", Value: inst.Hours},
		Field{Name: "ypvplanstd", Value: inst.Hours},
		Field{Name: "ypvforecaststd", Value: inst.Hours},
		Field{Name: "yadatum", Value: calendar.FormatERPDate(inst.Start)},
		Field{Name: "yedatum", Value: calendar.FormatERPDate(inst.End)},
	)
}

// CreateTask creates one project task and returns its ERP ID.
func (c *Client) CreateTask(ctx context.Context, inst domain.TaskInstruction) (string, error) {
	res, err := c.Create(ctx, dbTask, TaskFields(inst))
	if err != nil {
		return "", fmt.Errorf("creating task %q for %s: %w", inst.Label, inst.Assignee, err)
	}
	return res.ID, nil
}

// CreateTaskFolder creates a task folder (Sammelvorgang) for a project.
func (c *Client) CreateTaskFolder(ctx context.Context, projectNumber, label string, start, end time.Time) (string, error) {
	res, err := c.Create(ctx, dbTask, []Field{
		{Name: "yprojekt", Value: projectNumber},
		{Name: "namebspr", Value: label},
		{Name: "ypvtyp", Value: taskTypeFolder},
		{Name: "yadatum", Value: calendar.FormatERPDate(start)},
		{Name: "yedatum", Value: calendar.FormatERPDate(end)},
	})
	if err != nil {
		return "", fmt.Errorf("creating task folder for %s: %w", projectNumber, err)
	}
	return res.ID, nil
}

// ReleaseTasks runs PRJMAUFAN, which releases the project's tasks to the departments.
func (c *Client) ReleaseTasks(ctx context.Context, projectNumber string) error {
	_, err := c.Infosystem(ctx, Request{
		Infosystem:  "PRJMAUFAN",
		SideEffects: true,
		Data: []Field{
			{Name: "yprojekt", Value: projectNumber},
			{Name: "yvondatum", Value: ""},
			{Name: "ybisdatum", Value: ""},
			{Name: "bstart", Value: "1"},
			{Name: "ybuanlegen", Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("releasing tasks of %s: %w", projectNumber, err)
	}
	return nil
}
