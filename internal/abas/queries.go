package abas

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/hours"
)

// ERP databases and groups.
const (
	dbProject     = "32:00"
	dbCalculation = "41:00"
	dbTask        = "149:02"
)

var gatewayPattern = regexp.MustCompile(`(?i)\bG\s*([678])\b|^\s*([678])\s*$`)

// LookupProject resolves the gateway object and calculation of a project.
func (c *Client) LookupProject(ctx context.Context, projectNumber string) (domain.ProjectRef, error) {
	res, err := c.Query(ctx, dbProject, []string{"nummer", "id", "ycalc^nummer"}, Equals("yproject", projectNumber))
	if err != nil {
		return domain.ProjectRef{}, fmt.Errorf("looking up project %s: %w", projectNumber, err)
	}
	if len(res.Records) == 0 {
		return domain.ProjectRef{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectNumber)
	}

	rec := res.Records[0]
	ref := domain.ProjectRef{
		ProjectNumber:     projectNumber,
		GatewayID:         rec.String("id"),
		GatewayNumber:     rec.String("nummer"),
		CalculationNumber: rec.String("ycalc^nummer"),
	}
	if ref.GatewayID == "" {
		return domain.ProjectRef{}, fmt.Errorf("project %s has no gateway record", projectNumber)
	}
	if ref.CalculationNumber == "" {
		return domain.ProjectRef{}, fmt.Errorf("project %s has no calculation", projectNumber)
	}
	return ref, nil
}

// Milestones reads the gateway table of a gateway object. Rows are matched to
// G6/G7/G8 by name (or by their number); rows without an end date are skipped.
// The result may be incomplete; callers check Milestones.Missing.
func (c *Client) Milestones(ctx context.Context, gatewayID string) (domain.Milestones, error) {
	res, err := c.Read(ctx, gatewayID, []string{}, []string{"ytzid", "ytname", "ytenddate"})
	if err != nil {
		return nil, fmt.Errorf("reading gateway %s: %w", gatewayID, err)
	}

	milestones := make(domain.Milestones)
	for _, row := range res.Table {
		anchor, ok := gatewayAnchor(row.String("ytname"))
		if !ok {
			anchor, ok = gatewayAnchor(row.String("ytzid"))
		}
		if !ok {
			continue
		}
		raw := row.String("ytenddate")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		date, err := calendar.ParseERPDate(raw)
		if err != nil {
			return nil, fmt.Errorf("gateway %s %s: %w", gatewayID, anchor, err)
		}
		if _, seen := milestones[anchor]; !seen {
			milestones[anchor] = date
		}
	}
	return milestones, nil
}

func gatewayAnchor(s string) (domain.Anchor, bool) {
	m := gatewayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	digit := m[1]
	if digit == "" {
		digit = m[2]
	}
	anchor, err := domain.ParseAnchor("G" + digit)
	return anchor, err == nil
}

// CalculationRecords fetches the raw calculation hour fields of a calculation.
func (c *Client) CalculationRecords(ctx context.Context, calculationNumber string) ([]map[string]any, error) {
	res, err := c.Query(ctx, dbCalculation, hours.FieldNames(), Equals("nummer", calculationNumber))
	if err != nil {
		return nil, fmt.Errorf("fetching calculation %s: %w", calculationNumber, err)
	}
	records := make([]map[string]any, len(res.Records))
	for i, r := range res.Records {
		records[i] = r
	}
	return records, nil
}
