package observe

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// InstanceAPI is the slice of the EC2 API instance discovery needs
type InstanceAPI interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// InstanceLister discovers the fleet's running instances by project tag
type InstanceLister struct {
	ec2   InstanceAPI
	fleet *fleet.Fleet
}

// NewInstanceLister creates a new instance lister
func NewInstanceLister(api InstanceAPI, f *fleet.Fleet) *InstanceLister {
	return &InstanceLister{
		ec2:   api,
		fleet: f,
	}
}

// ListRunning returns the fleet's running instances with their launch times
func (l *InstanceLister) ListRunning(ctx context.Context) ([]types.ResourceUtilization, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("instance-state-name"), Values: []string{"running"}},
			{Name: aws.String("tag:" + l.fleet.ProjectTag.Key), Values: []string{l.fleet.ProjectTag.Value}},
		},
	}

	instances := []types.ResourceUtilization{}

	for {
		out, err := l.ec2.DescribeInstances(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}

		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, types.ResourceUtilization{
					ResourceID:   aws.ToString(inst.InstanceId),
					InstanceType: string(inst.InstanceType),
					LaunchedAt:   aws.ToTime(inst.LaunchTime),
				})
			}
		}

		if aws.ToString(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}

	return instances, nil
}
