package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/hours"
	"github.com/robby/pjm/internal/output"
	"github.com/robby/pjm/internal/planner"
	"github.com/robby/pjm/internal/session"
	"github.com/robby/pjm/internal/telemetry"
)

var (
	planOutputFlag  string
	planCreateFlag  bool
	planFolderFlag  bool
	planReleaseFlag bool
	planForceFlag   bool
	planYesFlag     bool
	planHoursFlag   []string
	planRemoveFlag  []string
	planAddFlag     []string
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <project>",
		Short: "Draft the task plan of a project and optionally create it in ABAS",
		Long: `Draft the department tasks of a project from its milestones and calculated hours.

Without --create the plan is only printed. Rows can be adjusted before creation:

  pjm plan P24-0815 --hours MCAD=32 --remove TD --add SOFTWARE --create`,
		Args: cobra.ExactArgs(1),
		RunE: runPlan,
	}

	cmd.Flags().StringVarP(&planOutputFlag, "output", "o", output.FormatText, "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&planCreateFlag, "create", false, "Create the tasks in ABAS")
	cmd.Flags().BoolVar(&planFolderFlag, "folder", false, "Create a task folder spanning the plan first")
	cmd.Flags().BoolVar(&planReleaseFlag, "release", false, "Release the created tasks to the departments")
	cmd.Flags().BoolVar(&planForceFlag, "force", false, "Create tasks even if rows end before they start")
	cmd.Flags().BoolVarP(&planYesFlag, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().StringArrayVar(&planHoursFlag, "hours", nil, "Set the hours of a department row, e.g. MCAD=32 (repeatable)")
	cmd.Flags().StringArrayVar(&planRemoveFlag, "remove", nil, "Remove a department row (repeatable)")
	cmd.Flags().StringArrayVar(&planAddFlag, "add", nil, "Add a row for a department with its rule dates (repeatable)")

	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	f, err := output.NewFormatter(planOutputFlag, &output.Options{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}

	d, err := wire(telemetry.Setup(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	sess := session.New()
	plan, err := d.service.Load(ctx, sess, args[0], d.lead)
	if err != nil {
		return err
	}

	edits, err := planEdits(plan)
	if err != nil {
		return err
	}
	if len(edits) > 0 {
		if plan, err = d.service.Edit(sess, edits...); err != nil {
			return err
		}
	}

	if err := f.Format(output.NewPlanView(plan)); err != nil {
		return err
	}
	if !planCreateFlag {
		return nil
	}

	if !planYesFlag && isInteractive() {
		ok, err := confirmCommit(plan)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "Nothing created.")
			return nil
		}
	}

	return commitPlan(ctx, d.service, sess, f)
}

// planEdits turns the --hours, --remove and --add flags into edits of plan.
func planEdits(plan domain.TaskPlan) ([]planner.Edit, error) {
	var edits []planner.Edit

	for _, arg := range planHoursFlag {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("--hours %q: want DEPARTMENT=HOURS", arg)
		}
		row, err := departmentRow(plan, name)
		if err != nil {
			return nil, fmt.Errorf("--hours %q: %w", arg, err)
		}
		h, ok := hours.Numeric(value)
		if !ok {
			return nil, fmt.Errorf("--hours %q: %q is not a number", arg, value)
		}
		edits = append(edits, planner.UpdateRow(row.ID).WithHours(h))
	}

	for _, name := range planRemoveFlag {
		row, err := departmentRow(plan, name)
		if err != nil {
			return nil, fmt.Errorf("--remove %q: %w", name, err)
		}
		edits = append(edits, planner.RemoveRow(row.ID))
	}

	for _, name := range planAddFlag {
		dept, err := domain.ParseDepartment(name)
		if err != nil {
			return nil, fmt.Errorf("--add %q: %w", name, err)
		}
		edits = append(edits, planner.AddRow(dept))
	}

	return edits, nil
}

// departmentRow finds the first department row of the named department.
func departmentRow(plan domain.TaskPlan, name string) (domain.TaskRow, error) {
	dept, err := domain.ParseDepartment(name)
	if err != nil {
		return domain.TaskRow{}, err
	}
	for _, r := range plan.Rows {
		if r.Department == dept {
			return r, nil
		}
	}
	return domain.TaskRow{}, fmt.Errorf("%w: no %s row in the plan", planner.ErrRowNotFound, dept)
}

func confirmCommit(plan domain.TaskPlan) (bool, error) {
	title := fmt.Sprintf("Create %d task(s) for %s in ABAS?", len(plan.All()), plan.ProjectNumber)
	if warnings := plan.Warnings(); len(warnings) > 0 && planForceFlag {
		title = fmt.Sprintf("%d row(s) end before they start. Create %d task(s) anyway?", len(warnings), len(plan.All()))
	}

	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Create").
				Negative("Cancel").
				Value(&ok),
		),
	).WithShowHelp(false).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func commitPlan(ctx context.Context, service *planner.Service, sess *session.Session, f output.Formatter) error {
	result, err := service.Commit(ctx, sess, planner.CommitOptions{
		Folder:  planFolderFlag,
		Release: planReleaseFlag,
		Force:   planForceFlag,
	})

	var commitErr *planner.CommitError
	switch {
	case errors.As(err, &commitErr):
		if ferr := f.Format(output.NewCommitView(sess.ProjectNumber(), commitErr.Partial)); ferr != nil {
			return ferr
		}
		return err
	case errors.Is(err, planner.ErrReleaseFailed):
		if ferr := f.Format(output.NewCommitView(sess.ProjectNumber(), result)); ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w (all tasks were created, do not rerun --create; release them in ABAS)", err)
	case errors.Is(err, planner.ErrInvertedRows):
		return fmt.Errorf("%w (use --force to create them anyway)", err)
	case err != nil:
		return err
	}
	return f.Format(output.NewCommitView(sess.ProjectNumber(), result))
}
