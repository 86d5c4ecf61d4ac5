// Package cmd provides the CLI commands for costctl.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/report"
)

var (
	fleetsDir string
	fleetName string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "costctl",
	Short: "Cost-optimization advisor for GPU fleets on AWS",
	Long: `costctl inspects a GPU fleet's spot prices, utilization, scaling
state, Cost Explorer spend, and EBS storage, and produces prioritized
cost-optimization recommendations.

Every command is read-only except "apply", which changes the fleet's
auto-scaling desired capacity after explicit confirmation.

Examples:
  costctl report --fleet gpu-inference
  costctl spot --fleet gpu-inference
  costctl apply --fleet gpu-inference --desired 2 --yes`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&fleetsDir, "fleets-dir", "internal/fleet/definitions", "directory of fleet profile YAML files")
	rootCmd.PersistentFlags().StringVar(&fleetName, "fleet", "", "fleet profile name (required)")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(spotCmd)
	rootCmd.AddCommand(idleCmd)
	rootCmd.AddCommand(scalingCmd)
	rootCmd.AddCommand(costsCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("costctl version 0.1.0")
	},
}

// loadFleet resolves the --fleet flag against the fleets directory
func loadFleet() (*fleet.Fleet, error) {
	if fleetName == "" {
		return nil, fmt.Errorf("--fleet is required")
	}

	registry, err := fleet.NewRegistry(fleet.NewLoader(fleetsDir))
	if err != nil {
		return nil, fmt.Errorf("load fleets: %w", err)
	}

	return registry.Get(fleetName)
}

// newAssembler wires an assembler for the fleet against real AWS clients
func newAssembler(ctx context.Context, f *fleet.Fleet) (*report.Assembler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	return report.NewAWSAssemblerFactory(awsCfg, os.Getenv("ALERT_TOPIC_ARN"))(f), nil
}

// printJSON writes indented JSON to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
