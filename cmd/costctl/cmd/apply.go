// Package cmd - apply command
package cmd

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/spf13/cobra"

	"github.com/tsanders-rh/costctl/internal/scaling"
	"github.com/tsanders-rh/costctl/pkg/types"
)

var (
	applyDesired int
	applyYes     bool
)

// applyCmd is the single mutating command
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Set the fleet's auto-scaling desired capacity",
	Long: `Apply a capacity change to the fleet's auto-scaling group.

This is the only command that changes AWS state. The desired capacity
must stay within the group's current min/max bounds, and the change is
refused without the --yes flag.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().IntVar(&applyDesired, "desired", -1, "desired capacity to apply (required)")
	applyCmd.Flags().BoolVar(&applyYes, "yes", false, "confirm the capacity change")
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if applyDesired < 0 {
		return fmt.Errorf("--desired is required")
	}

	f, err := loadFleet()
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load AWS configuration: %w", err)
	}
	awsCfg.Region = f.Region

	client := scaling.NewClient(autoscaling.NewFromConfig(awsCfg), f)

	capacity, err := client.Capacity(ctx)
	if err != nil {
		return fmt.Errorf("read group capacity: %w", err)
	}

	if applyDesired == capacity.Desired {
		fmt.Printf("Group %s is already at desired capacity %d\n", capacity.GroupName, capacity.Desired)
		return nil
	}

	fmt.Printf("Group %s: desired %d -> %d (min=%d, max=%d)\n",
		capacity.GroupName, capacity.Desired, applyDesired, capacity.Min, capacity.Max)

	if !applyYes {
		return fmt.Errorf("refusing to apply without --yes")
	}

	rec := &types.ScalingRecommendation{
		GroupName:       capacity.GroupName,
		CurrentDesired:  capacity.Desired,
		CurrentMin:      capacity.Min,
		CurrentMax:      capacity.Max,
		ProposedDesired: applyDesired,
	}

	if err := client.Apply(ctx, rec); err != nil {
		return err
	}

	fmt.Printf("Applied desired capacity %d to group %s\n", applyDesired, capacity.GroupName)
	return nil
}
