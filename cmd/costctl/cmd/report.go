// Package cmd - report command
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// reportCmd runs the full optimization pipeline
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run a full optimization cycle and print the report",
	Long: `Run every observer stage (spot prices, idle detection, scaling
advice, cost insights, storage findings) and print the assembled report
with its prioritized recommendations as JSON.

A provider failure in one stage is recorded in that section's error
field; the rest of the report is still produced.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	f, err := loadFleet()
	if err != nil {
		return err
	}

	assembler, err := newAssembler(ctx, f)
	if err != nil {
		return err
	}

	return printJSON(assembler.Assemble(ctx))
}
