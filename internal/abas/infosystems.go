package abas

import (
	"context"
	"fmt"
	"time"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
)

var gatewayTableFields = []string{
	"tprojekt^nummer", "tserprod^nummer", "tprojektname^name",
	"tprjphase^name", "ytaktgw", "ygwinfo", "ytprjampel",
	"ytkundeans^name", "ytstandortans^name", "ytprjverantw^such",
}

// GatewayDashboardByPhase lists the projects of a project phase.
func (c *Client) GatewayDashboardByPhase(ctx context.Context, phase string) ([]domain.GatewayRow, error) {
	return c.gatewayDashboard(ctx, Field{Name: "prjphase", Value: phase})
}

// GatewayDashboardByLead lists the projects of a project lead.
func (c *Client) GatewayDashboardByLead(ctx context.Context, lead string) ([]domain.GatewayRow, error) {
	return c.gatewayDashboard(ctx, Field{Name: "prjleit", Value: lead})
}

func (c *Client) gatewayDashboard(ctx context.Context, filter Field) ([]domain.GatewayRow, error) {
	res, err := c.Infosystem(ctx, Request{
		Infosystem:  "GATEWAYDASHBOARD",
		Data:        []Field{filter, {Name: "bstart", Value: "1"}},
		TableFields: gatewayTableFields,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway dashboard: %w", err)
	}

	rows := make([]domain.GatewayRow, 0, len(res.Table))
	for _, r := range res.Table {
		rows = append(rows, domain.GatewayRow{
			ProjectNumber:  r.String("tprojekt^nummer"),
			ServiceProduct: r.String("tserprod^nummer"),
			ProjectName:    r.String("tprojektname^name"),
			Phase:          r.String("tprjphase^name"),
			Gateway:        r.String("ytaktgw"),
			GatewayInfo:    r.String("ygwinfo"),
			Ampel:          r.String("ytprjampel"),
			Customer:       r.String("ytkundeans^name"),
			Location:       r.String("ytstandortans^name"),
			Responsible:    r.String("ytprjverantw^such"),
		})
	}
	return rows, nil
}

// Dispatches lists the lead's shipments between from and to.
func (c *Client) Dispatches(ctx context.Context, lead string, from, to time.Time) ([]domain.DispatchRow, error) {
	res, err := c.Infosystem(ctx, Request{
		Infosystem: "DISPATCH",
		Data: []Field{
			{Name: "yprjleit", Value: lead},
			{Name: "yvon", Value: calendar.FormatERPDate(from)},
			{Name: "ybis", Value: calendar.FormatERPDate(to)},
			{Name: "bstart", Value: "1"},
		},
		TableFields: []string{
			"ytprojekt^nummer", "ytserprod^nummer",
			"ytserprodname^name", "ytwarenempfname^name", "ytdispatch",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch overview: %w", err)
	}

	rows := make([]domain.DispatchRow, 0, len(res.Table))
	for _, r := range res.Table {
		rows = append(rows, domain.DispatchRow{
			Dispatch:       r.String("ytdispatch"),
			ProjectNumber:  r.String("ytprojekt^nummer"),
			ServiceProduct: r.String("ytserprod^nummer"),
			SystemType:     r.String("ytserprodname^name"),
			Recipient:      r.String("ytwarenempfname^name"),
		})
	}
	return rows, nil
}

// OpenTasks lists the active ABAS tasks of the lead.
func (c *Client) OpenTasks(ctx context.Context, lead string) ([]domain.OpenTask, error) {
	res, err := c.Infosystem(ctx, Request{
		Infosystem: "10345",
		Data: []Field{
			{Name: "bearbeit", Value: lead},
			{Name: "bstart", Value: "1"},
		},
		TableFields: []string{
			"taufgabe^nummer", "taufgabe^projekt^nummer", "taufgabe^yprojektname^namebspr",
			"taufgabe^start", "taufgabe^end", "taufgabenname^namebspr", "tbestaetigername^namebspr",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}

	tasks := make([]domain.OpenTask, 0, len(res.Table))
	for _, r := range res.Table {
		tasks = append(tasks, domain.OpenTask{
			Number:        r.String("taufgabe^nummer"),
			Title:         r.String("taufgabenname^namebspr"),
			From:          r.String("tbestaetigername^namebspr"),
			ProjectNumber: r.String("taufgabe^projekt^nummer"),
			ProjectName:   r.String("taufgabe^yprojektname^namebspr"),
			Start:         r.String("taufgabe^start"),
			End:           r.String("taufgabe^end"),
		})
	}
	return tasks, nil
}

// BookedHours lists the lead's time bookings between from and to.
// Bookings with a non-numeric hour value are skipped.
func (c *Client) BookedHours(ctx context.Context, lead string, from, to time.Time) ([]domain.BookedHours, error) {
	res, err := c.Infosystem(ctx, Request{
		Infosystem: "PRJMLM",
		Data: []Field{
			{Name: "ypersonal", Value: lead},
			{Name: "ystdvondatum", Value: calendar.FormatERPDate(from)},
			{Name: "ystdbisdatum", Value: calendar.FormatERPDate(to)},
			{Name: "bstart", Value: "1"},
		},
		TableFields: []string{"yadatum", "ystdtats", "ytprojekt^nummer", "ytprojekt^namebspr"},
	})
	if err != nil {
		return nil, fmt.Errorf("booked hours: %w", err)
	}

	bookings := make([]domain.BookedHours, 0, len(res.Table))
	for _, r := range res.Table {
		h, ok := r.Number("ystdtats")
		if !ok {
			continue
		}
		bookings = append(bookings, domain.BookedHours{
			Date:          r.String("yadatum"),
			Hours:         h,
			ProjectNumber: r.String("ytprojekt^nummer"),
			Description:   r.String("ytprojekt^namebspr"),
		})
	}
	return bookings, nil
}

// ProjectBudgets lists the lead's projects with booked hours against budget.
// Rows whose percentage is not a number are dropped.
func (c *Client) ProjectBudgets(ctx context.Context, lead string, from, to time.Time) ([]domain.OverbookedProject, error) {
	res, err := c.Infosystem(ctx, Request{
		Infosystem: "PRJM5080LISTE",
		Data: []Field{
			{Name: "yprojleit", Value: lead},
			{Name: "ybprabgeschlossen", Value: "1"},
			{Name: "yvondatum", Value: calendar.FormatERPDate(from)},
			{Name: "ybisdatum", Value: calendar.FormatERPDate(to)},
			{Name: "bstart", Value: "1"},
		},
		TableFields: []string{"ytprojekt^nummer", "ytprojname^namebspr", "ytfortistbudget", "ytsollstd", "ytiststd"},
	})
	if err != nil {
		return nil, fmt.Errorf("project budgets: %w", err)
	}

	projects := make([]domain.OverbookedProject, 0, len(res.Table))
	for _, r := range res.Table {
		percent, ok := r.Number("ytfortistbudget")
		if !ok {
			continue
		}
		budget, _ := r.Number("ytsollstd")
		booked, _ := r.Number("ytiststd")
		projects = append(projects, domain.OverbookedProject{
			ProjectNumber: r.String("ytprojekt^nummer"),
			ProjectName:   r.String("ytprojname^namebspr"),
			Percent:       percent,
			Budget:        budget,
			Booked:        booked,
		})
	}
	return projects, nil
}
