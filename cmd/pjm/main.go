package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/robby/pjm/internal/output"
	"github.com/robby/pjm/internal/planner"
	"github.com/robby/pjm/internal/telemetry"
	"github.com/robby/pjm/internal/tui"
)

var (
	// Global flags
	settingsFlag string
	leadFlag     string
	logFileFlag  string

	// Root command flags
	projectFlag string
	folderFlag  bool
	releaseFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pjm",
		Short: "Project planning on top of ABAS",
		Long: `pjm is the project lead's dashboard and task planner for ABAS.

It shows the lead's projects, dispatches, open tasks and bookings, and drafts
the department tasks of a project from its G6/G7/G8 milestones and the
calculated hours, ready to be created in ABAS.

Identity:
  --lead or PJM_LEAD        project lead short code (required)
  ABAS_TOKEN                bearer token for the EDP service (optional)

Settings are read from --settings, PJM_SETTINGS or ~/.pjm/settings.json.`,
		SilenceUsage: true,
		RunE:         runDashboard,
	}

	rootCmd.PersistentFlags().StringVar(&settingsFlag, "settings", "", "Settings file (default $PJM_SETTINGS or ~/.pjm/settings.json)")
	rootCmd.PersistentFlags().StringVar(&leadFlag, "lead", "", "Project lead short code (default $PJM_LEAD)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Write logs to this file while the TUI runs")

	rootCmd.Flags().StringVar(&projectFlag, "project", "", "Open this project's plan directly. Skips the dashboard.")
	rootCmd.Flags().BoolVar(&folderFlag, "folder", false, "Create a task folder first when committing")
	rootCmd.Flags().BoolVar(&releaseFlag, "release", false, "Release created tasks to the departments")

	rootCmd.AddCommand(newPlanCmd(), newSettingsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if !isInteractive() {
		return printDashboard(ctx)
	}

	// The TUI owns the terminal; logs go to --log-file or nowhere.
	logger, closeLog, err := telemetry.SetupFile(logFileFlag)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer closeLog()

	d, err := wire(logger)
	if err != nil {
		return err
	}

	app := tui.NewAppModel(d.service, d.loader, ctx, d.lead, projectFlag, planner.CommitOptions{
		Folder:  folderFlag,
		Release: releaseFlag,
	}).WithNotice(d.notice)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

// printDashboard writes the dashboard as text when stdout is not a terminal.
func printDashboard(ctx context.Context) error {
	d, err := wire(telemetry.Setup(os.Stderr))
	if err != nil {
		return err
	}

	f, err := output.NewFormatter(output.FormatText, &output.Options{Writer: os.Stdout, NoColor: true})
	if err != nil {
		return err
	}
	loaded := d.loader.Load(ctx, d.lead)
	if err := f.Format(output.NewDashboardView(loaded)); err != nil {
		return err
	}
	if n := loaded.Failures(); n > 0 {
		return fmt.Errorf("%d dashboard section(s) could not be loaded", n)
	}
	return nil
}
