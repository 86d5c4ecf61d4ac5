package scaling

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// GroupAPI is the slice of the Auto Scaling API the client needs
type GroupAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	DescribeScalingActivities(ctx context.Context, params *autoscaling.DescribeScalingActivitiesInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeScalingActivitiesOutput, error)
	SetDesiredCapacity(ctx context.Context, params *autoscaling.SetDesiredCapacityInput, optFns ...func(*autoscaling.Options)) (*autoscaling.SetDesiredCapacityOutput, error)
}

// Client reads the fleet's auto-scaling group state and, on explicit
// confirmation only, applies a recommended capacity change.
type Client struct {
	api   GroupAPI
	fleet *fleet.Fleet
}

// NewClient creates a new scaling client
func NewClient(api GroupAPI, f *fleet.Fleet) *Client {
	return &Client{
		api:   api,
		fleet: f,
	}
}

// Capacity returns the group's current desired/min/max configuration
func (c *Client) Capacity(ctx context.Context) (*types.GroupCapacity, error) {
	out, err := c.api.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{c.fleet.AutoScaling.GroupName},
	})
	if err != nil {
		return nil, fmt.Errorf("describe auto scaling groups: %w", err)
	}

	if len(out.AutoScalingGroups) == 0 {
		return nil, fmt.Errorf("auto scaling group %s not found", c.fleet.AutoScaling.GroupName)
	}

	group := out.AutoScalingGroups[0]
	return &types.GroupCapacity{
		GroupName: aws.ToString(group.AutoScalingGroupName),
		Desired:   int(aws.ToInt32(group.DesiredCapacity)),
		Min:       int(aws.ToInt32(group.MinSize)),
		Max:       int(aws.ToInt32(group.MaxSize)),
	}, nil
}

// RecentActivity counts scale-up and scale-down events within the window
func (c *Client) RecentActivity(ctx context.Context, window types.Window) (*types.ScalingActivitySummary, error) {
	out, err := c.api.DescribeScalingActivities(ctx, &autoscaling.DescribeScalingActivitiesInput{
		AutoScalingGroupName: aws.String(c.fleet.AutoScaling.GroupName),
		MaxRecords:           aws.Int32(100),
	})
	if err != nil {
		return nil, fmt.Errorf("describe scaling activities: %w", err)
	}

	summary := &types.ScalingActivitySummary{Window: window}

	for _, activity := range out.Activities {
		start := aws.ToTime(activity.StartTime)
		if start.Before(window.Start) || start.After(window.End) {
			continue
		}

		desc := strings.ToLower(aws.ToString(activity.Description))
		switch {
		case strings.Contains(desc, "launching"), strings.Contains(desc, "scale up"):
			summary.ScaleUps++
		case strings.Contains(desc, "terminating"), strings.Contains(desc, "scale down"):
			summary.ScaleDowns++
		}
	}

	return summary, nil
}

// Apply sets the group's desired capacity to the recommendation's proposed
// value. This is the one mutation in the module; the caller is responsible
// for not issuing duplicate concurrent applies against the same group.
func (c *Client) Apply(ctx context.Context, rec *types.ScalingRecommendation) error {
	if rec == nil {
		return fmt.Errorf("no recommendation to apply")
	}
	if rec.GroupName != c.fleet.AutoScaling.GroupName {
		return fmt.Errorf("recommendation targets group %s, fleet group is %s",
			rec.GroupName, c.fleet.AutoScaling.GroupName)
	}
	if rec.ProposedDesired < rec.CurrentMin || rec.ProposedDesired > rec.CurrentMax {
		return fmt.Errorf("proposed capacity %d outside bounds [%d, %d]",
			rec.ProposedDesired, rec.CurrentMin, rec.CurrentMax)
	}

	_, err := c.api.SetDesiredCapacity(ctx, &autoscaling.SetDesiredCapacityInput{
		AutoScalingGroupName: aws.String(rec.GroupName),
		DesiredCapacity:      aws.Int32(int32(rec.ProposedDesired)),
		HonorCooldown:        aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("set desired capacity: %w", err)
	}

	return nil
}
