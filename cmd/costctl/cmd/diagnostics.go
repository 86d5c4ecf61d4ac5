// Package cmd - single-stage diagnostic commands
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tsanders-rh/costctl/internal/report"
)

// diagnose runs one stage against a freshly wired assembler
func diagnose(run func(ctx context.Context, a *report.Assembler) interface{}) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		f, err := loadFleet()
		if err != nil {
			return err
		}

		assembler, err := newAssembler(ctx, f)
		if err != nil {
			return err
		}

		return printJSON(run(ctx, assembler))
	}
}

// spotCmd analyzes spot prices only
var spotCmd = &cobra.Command{
	Use:   "spot",
	Short: "Analyze spot prices across availability zones",
	RunE: diagnose(func(ctx context.Context, a *report.Assembler) interface{} {
		return a.DiagnoseSpot(ctx)
	}),
}

// idleCmd classifies running instances only
var idleCmd = &cobra.Command{
	Use:   "idle",
	Short: "Classify running instances as idle or busy",
	RunE: diagnose(func(ctx context.Context, a *report.Assembler) interface{} {
		return a.DiagnoseIdle(ctx)
	}),
}

// scalingCmd produces scaling advice only
var scalingCmd = &cobra.Command{
	Use:   "scaling",
	Short: "Produce advisory scaling recommendations",
	RunE: diagnose(func(ctx context.Context, a *report.Assembler) interface{} {
		return a.DiagnoseScaling(ctx)
	}),
}

// costsCmd fetches Cost Explorer insights only
var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Fetch month-to-date costs and forecast",
	RunE: diagnose(func(ctx context.Context, a *report.Assembler) interface{} {
		return a.DiagnoseCosts(ctx)
	}),
}

// storageCmd analyzes EBS volumes and snapshots only
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Analyze EBS volumes and snapshots for savings",
	RunE: diagnose(func(ctx context.Context, a *report.Assembler) interface{} {
		return a.DiagnoseStorage(ctx)
	}),
}
