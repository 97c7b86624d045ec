// Package dashboard loads the project lead's overview. Each section is fetched
// on its own and keeps its own error, so one failing infosystem never hides
// the others.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
)

// Time windows in business days around today.
const (
	DispatchWindow = 10
	BookingWindow  = 3
)

// OverbookedThreshold is the booking percentage above which a project is overbooked.
const OverbookedThreshold = 100.0

// Source provides the dashboard infosystems.
type Source interface {
	GatewayDashboardByPhase(ctx context.Context, phase string) ([]domain.GatewayRow, error)
	GatewayDashboardByLead(ctx context.Context, lead string) ([]domain.GatewayRow, error)
	Dispatches(ctx context.Context, lead string, from, to time.Time) ([]domain.DispatchRow, error)
	OpenTasks(ctx context.Context, lead string) ([]domain.OpenTask, error)
	BookedHours(ctx context.Context, lead string, from, to time.Time) ([]domain.BookedHours, error)
	ProjectBudgets(ctx context.Context, lead string, from, to time.Time) ([]domain.OverbookedProject, error)
}

// Section is one block of the dashboard.
type Section[T any] struct {
	Title string
	Rows  []T
	Err   error
}

// Failed reports whether the section could not be loaded.
func (s Section[T]) Failed() bool { return s.Err != nil }

// Dashboard is the loaded overview of one lead.
type Dashboard struct {
	Lead  string
	Today time.Time

	SoldPhase    Section[domain.GatewayRow]
	LeadProjects Section[domain.GatewayRow]
	Dispatches   Section[domain.DispatchRow]
	OpenTasks    Section[domain.OpenTask]
	Overbooked   Section[domain.OverbookedProject]
	BookedHours  Section[domain.BookedHours]
}

// Red returns the lead's projects with a red traffic light.
func (d Dashboard) Red() Section[domain.GatewayRow] {
	return d.byAmpel("Projects with red traffic light", domain.AmpelRed)
}

// Blue returns the lead's projects with a blue traffic light.
func (d Dashboard) Blue() Section[domain.GatewayRow] {
	return d.byAmpel("Projects with blue traffic light", domain.AmpelBlue)
}

func (d Dashboard) byAmpel(title, ampel string) Section[domain.GatewayRow] {
	s := Section[domain.GatewayRow]{Title: title, Err: d.LeadProjects.Err}
	for _, row := range d.LeadProjects.Rows {
		if row.Ampel == ampel {
			s.Rows = append(s.Rows, row)
		}
	}
	return s
}

// Failures counts sections that could not be loaded.
func (d Dashboard) Failures() int {
	n := 0
	for _, failed := range []bool{
		d.SoldPhase.Failed(),
		d.LeadProjects.Failed(),
		d.Dispatches.Failed(),
		d.OpenTasks.Failed(),
		d.Overbooked.Failed(),
		d.BookedHours.Failed(),
	} {
		if failed {
			n++
		}
	}
	return n
}

// Loader fetches dashboards.
type Loader struct {
	source Source
	now    func() time.Time
	logger *slog.Logger
}

// NewLoader creates a loader. A nil clock uses time.Now; a nil logger uses slog.Default().
func NewLoader(source Source, now func() time.Time, logger *slog.Logger) *Loader {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, now: now, logger: logger}
}

// Load fetches every section for lead. It never fails as a whole; errors are
// kept per section.
func (l *Loader) Load(ctx context.Context, lead string) Dashboard {
	today := calendar.Day(l.now())
	dispatchUntil := calendar.AddBusinessDays(today, DispatchWindow)
	bookedSince := calendar.AddBusinessDays(today, -BookingWindow)

	d := Dashboard{Lead: lead, Today: today}

	d.SoldPhase = load(ctx, l, "Projects in Sold Phase", func(ctx context.Context) ([]domain.GatewayRow, error) {
		return l.source.GatewayDashboardByPhase(ctx, domain.SoldPhase)
	})
	d.LeadProjects = load(ctx, l, "My projects", func(ctx context.Context) ([]domain.GatewayRow, error) {
		return l.source.GatewayDashboardByLead(ctx, lead)
	})
	d.Dispatches = load(ctx, l, "Dispatches in the next 10 business days", func(ctx context.Context) ([]domain.DispatchRow, error) {
		return l.source.Dispatches(ctx, lead, today, dispatchUntil)
	})
	d.OpenTasks = load(ctx, l, "Open ABAS tasks", func(ctx context.Context) ([]domain.OpenTask, error) {
		return l.source.OpenTasks(ctx, lead)
	})
	d.Overbooked = load(ctx, l, "Overbooked projects", func(ctx context.Context) ([]domain.OverbookedProject, error) {
		projects, err := l.source.ProjectBudgets(ctx, lead, bookedSince, today)
		return Overbooked(projects), err
	})
	d.BookedHours = load(ctx, l, "Booked hours (last 3 business days)", func(ctx context.Context) ([]domain.BookedHours, error) {
		return l.source.BookedHours(ctx, lead, bookedSince, today)
	})

	if n := d.Failures(); n > 0 {
		l.logger.Warn("dashboard partially loaded", "lead", lead, "failed_sections", n)
	}
	return d
}

func load[T any](ctx context.Context, l *Loader, title string, fetch func(context.Context) ([]T, error)) Section[T] {
	start := time.Now()
	rows, err := fetch(ctx)
	if err != nil {
		l.logger.Error("dashboard section failed", "section", title, "error", err)
		return Section[T]{Title: title, Err: err}
	}
	l.logger.Debug("dashboard section loaded", "section", title, "rows", len(rows), "duration_ms", time.Since(start).Milliseconds())
	return Section[T]{Title: title, Rows: rows}
}

// Overbooked keeps the projects booked above OverbookedThreshold percent.
func Overbooked(projects []domain.OverbookedProject) []domain.OverbookedProject {
	var out []domain.OverbookedProject
	for _, p := range projects {
		if p.Percent > OverbookedThreshold {
			out = append(out, p)
		}
	}
	return out
}
