// Command probe prints what ABAS returns for one project: the resolved
// identifiers, the gateway milestones and the calculation hours. It is a
// developer tool for checking the EDP response shapes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robby/pjm/internal/abas"
	"github.com/robby/pjm/internal/auth"
	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/hours"
	"github.com/robby/pjm/internal/settings"
	"github.com/robby/pjm/internal/telemetry"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: probe <project number>")
		os.Exit(2)
	}
	projectNumber := os.Args[1]

	logger := telemetry.Setup(os.Stderr)

	path, err := settings.ResolvePath("")
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := settings.Load(path)
	if err != nil {
		log.Fatal(err)
	}

	client := abas.New(cfg.BaseAddress, abas.WithToken(auth.Token()), abas.WithLogger(logger))
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ref, err := client.LookupProject(ctx, projectNumber)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Project %s: gateway=%s (%s) calculation=%s\n\n",
		ref.ProjectNumber, ref.GatewayID, ref.GatewayNumber, ref.CalculationNumber)

	milestones, err := client.Milestones(ctx, ref.GatewayID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Milestones:")
	for _, g := range domain.Gateways {
		date, ok := milestones[g]
		if !ok {
			fmt.Printf("  %s: missing\n", g)
			continue
		}
		fmt.Printf("  %s: %s (%s)\n", g, calendar.FormatERPDate(date), date.Weekday())
	}

	records, err := client.CalculationRecords(ctx, ref.CalculationNumber)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nCalculation records (%d):\n", len(records))
	for i, r := range records {
		fmt.Printf("  #%d: %v\n", i+1, r)
	}

	totals := hours.Aggregate(records)
	fmt.Println("\nHours per department:")
	for _, d := range totals.SortedDepartments() {
		fmt.Printf("  %-20s %8.2f\n", d, totals[d])
	}
}
